// Package frontend is a minimal recursive-descent surface syntax for feeding
// the ir package's builder API from text instead of Go call sites. It exists
// to exercise the builder the way a real C front-end eventually would: lex,
// parse into a small AST, lower the AST one function at a time into unrestricted
// assignment form, then hand the result to ToSsa/Optimize.
//
// The language is deliberately tiny: functions take scalar s32 parameters,
// bodies are a flat list of assignments and a trailing return, expressions are
// a single term or one binary operation over two terms. There is no control flow in the
// surface syntax; callers that want branches and phis build those blocks
// directly through the ir package, as the example functions in cmd/ir-dump do.
package frontend

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var irLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Operator", Pattern: `[-+*/]`},
	{Name: "Punct", Pattern: `[(){},;=]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// Program is the root of the AST: zero or more function declarations.
type Program struct {
	Pos   lexer.Position
	Funcs []*FuncDecl `{ @@ }`
}

// FuncDecl is "fn name(params...) { stmts... }".
type FuncDecl struct {
	Pos    lexer.Position
	Name   string   `"fn" @Ident`
	Params []string `"(" [ @Ident { "," @Ident } ] ")" "{"`
	Stmts  []*Stmt  `{ @@ } "}"`
}

// Stmt is either an assignment or a return, both terminated by ";".
type Stmt struct {
	Pos    lexer.Position
	Assign *Assign `  @@`
	Return *Return `| @@`
}

// Assign is "name = expr ;".
type Assign struct {
	Name string `@Ident "="`
	Expr *Expr  `@@ ";"`
}

// Return is "return expr ;".
type Return struct {
	Expr *Expr `"return" @@ ";"`
}

// Expr is a term, optionally combined with one more term by a binary operator.
// There is no precedence climbing or associativity here: the surface language
// is only rich enough to drive the builder, not to express real programs.
type Expr struct {
	Left  *Term  `@@`
	Op    string `( @("+" | "-" | "*" | "/")`
	Right *Term  `  @@ )?`
}

// Term is either an integer literal or a variable reference.
type Term struct {
	Number *int64  `  @Int`
	Ident  *string `| @Ident`
}

var parser = participle.MustBuild[Program](
	participle.Lexer(irLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse turns source text into a Program AST.
func Parse(source string) (*Program, error) {
	return parser.ParseString("", source)
}
