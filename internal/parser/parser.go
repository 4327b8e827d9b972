// Package parser builds an *ast.File directly from a token.Kind stream,
// by recursive descent over SPL's small grammar: top level
// extern/struct/def declarations, and inside a body a chain of
// bindings, control flow, and the usual arithmetic/comparison/string-join
// operator precedence. It constructs nodes through the same ast.Exprs/
// File.DeclareFunc API the hand-built pipeline test fixtures use — there
// is no separate concrete-syntax-tree layer to desugar afterward.
package parser

import (
	"fmt"

	"github.com/geraldstanje/spl/internal/ast"
	"github.com/geraldstanje/spl/internal/diag"
	"github.com/geraldstanje/spl/internal/lexer"
	"github.com/geraldstanje/spl/internal/source"
	"github.com/geraldstanje/spl/internal/token"
)

// Options configures one Parse pass.
type Options struct {
	Reporter diag.Reporter
}

// Result reports whether the file parsed cleanly enough to hand to Bind.
type Result struct {
	OK bool
}

// Parse scans and parses file into a fresh *ast.File named by file's path.
func Parse(file *source.File, opts Options) (*ast.File, Result) {
	p := &parser{
		lx:   lexer.New(file, lexer.Options{Reporter: opts.Reporter}),
		file: ast.NewFile(file.Path),
		rep:  opts.Reporter,
		ok:   true,
	}
	p.advance()
	p.parseFile()
	return p.file, Result{OK: p.ok}
}

type parser struct {
	lx   *lexer.Lexer
	file *ast.File
	rep  diag.Reporter
	cur  token.Token
	ok   bool
}

func (p *parser) advance() {
	p.cur = p.lx.Next()
}

func (p *parser) at(k token.Kind) bool { return p.cur.Kind == k }

// expect consumes the current token if it matches k, reporting
// SynExpectedToken and leaving the cursor in place otherwise so the
// caller's own resync logic (skipping to the next statement boundary)
// still makes progress.
func (p *parser) expect(k token.Kind) (token.Token, bool) {
	if p.cur.Kind != k {
		p.errf(diag.SynExpectedToken, p.cur.Span, "expected %s, found %s", k, p.cur.Kind)
		return token.Token{}, false
	}
	tok := p.cur
	p.advance()
	return tok, true
}

func (p *parser) errf(code diag.Code, sp source.Span, format string, args ...any) {
	p.ok = false
	if p.rep == nil {
		return
	}
	diag.ReportError(p.rep, code, sp, fmt.Sprintf(format, args...)).Emit()
}

// syncTo skips tokens until one of the given kinds (or EOF) is current,
// used to recover after a malformed top-level declaration or statement.
func (p *parser) syncTo(kinds ...token.Kind) {
	for !p.at(token.EOF) {
		for _, k := range kinds {
			if p.at(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *parser) parseFile() {
	for !p.at(token.EOF) {
		switch {
		case p.at(token.KwExtern):
			p.parseExternDecl()
		case p.at(token.KwStruct):
			p.parseStructDecl()
		case p.at(token.KwIO), p.at(token.KwImp), p.at(token.KwDef):
			if fn, ok := p.parseFuncDecl(); ok {
				p.file.TopLevel = append(p.file.TopLevel, p.file.DeclareFunc(fn))
			}
		default:
			p.errf(diag.SynUnexpectedToken, p.cur.Span, "expected extern, struct, or def, found %s", p.cur.Kind)
			p.syncTo(token.KwExtern, token.KwStruct, token.KwIO, token.KwImp, token.KwDef)
		}
	}
}

// parseExternDecl parses `extern def name(Type, Type) -> Type ;` — an
// extern has a signature only, never a body.
func (p *parser) parseExternDecl() {
	p.advance() // 'extern'
	if _, ok := p.expect(token.KwDef); !ok {
		p.syncTo(token.Semi)
		p.advance()
		return
	}
	name, ok := p.expect(token.Ident)
	if !ok {
		p.syncTo(token.Semi)
		p.advance()
		return
	}
	if _, ok := p.expect(token.LParen); !ok {
		return
	}
	var paramTypes []*ast.TypePlaceholder
	for !p.at(token.RParen) && !p.at(token.EOF) {
		paramTypes = append(paramTypes, p.parseType())
		if !p.at(token.RParen) {
			if _, ok := p.expect(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RParen)
	p.expect(token.Arrow)
	retTy := p.parseType()
	if p.at(token.Semi) {
		p.advance()
	}

	fnID := p.file.DeclareFunc(ast.Func{
		Name:      name.Text,
		RetTypePh: retTy,
		IsExtern:  true,
	})
	fn := p.file.Func(fnID)
	for i, pt := range paramTypes {
		fn.Params = append(fn.Params, fmt.Sprintf("arg%d", i))
		fn.ParamTypePh = append(fn.ParamTypePh, pt)
	}
	p.file.Externs = append(p.file.Externs, fnID)
}

// parseStructDecl parses `struct Name { field: Type, field: Type }`. No
// generic-parameter list is parsed for a struct, unlike parseFuncDecl's
// GenericParams, and constructors are built with no TypeArgs.
func (p *parser) parseStructDecl() {
	p.advance() // 'struct'
	name, ok := p.expect(token.Ident)
	if !ok {
		p.syncTo(token.RBrace)
		p.advance()
		return
	}
	if _, ok := p.expect(token.LBrace); !ok {
		return
	}
	var fields []ast.StructFieldDecl
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		fname, ok := p.expect(token.Ident)
		if !ok {
			break
		}
		p.expect(token.Colon)
		ty := p.parseType()
		fields = append(fields, ast.StructFieldDecl{Name: fname.Text, TypePh: ty})
		if !p.at(token.RBrace) {
			if _, ok := p.expect(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RBrace)
	p.file.Structs = append(p.file.Structs, ast.StructDecl{Name: name.Text, Fields: fields})
}

// parseFuncDecl parses Purity? "def" Ident GenericParams? "(" ParamList?
// ")" "->" Type Body. Used both for top-level Decls and for a nested
// `def` inside a body (parseStmt wraps the latter in an ExprFuncLit).
func (p *parser) parseFuncDecl() (ast.Func, bool) {
	purity := ast.Pure
	switch {
	case p.at(token.KwIO):
		purity = ast.FunIO
		p.advance()
	case p.at(token.KwImp):
		purity = ast.Impure
		p.advance()
	}
	if _, ok := p.expect(token.KwDef); !ok {
		return ast.Func{}, false
	}
	name, ok := p.expect(token.Ident)
	if !ok {
		return ast.Func{}, false
	}

	var generics []string
	if p.at(token.Lt) {
		p.advance()
		for !p.at(token.Gt) && !p.at(token.EOF) {
			g, ok := p.expect(token.Ident)
			if !ok {
				break
			}
			generics = append(generics, g.Text)
			if !p.at(token.Gt) {
				if _, ok := p.expect(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.Gt)
	}

	if _, ok := p.expect(token.LParen); !ok {
		return ast.Func{}, false
	}
	var params []string
	var paramTypePh []*ast.TypePlaceholder
	for !p.at(token.RParen) && !p.at(token.EOF) {
		pname, ok := p.expect(token.Ident)
		if !ok {
			break
		}
		p.expect(token.Colon)
		ty := p.parseType()
		params = append(params, pname.Text)
		paramTypePh = append(paramTypePh, ty)
		if !p.at(token.RParen) {
			if _, ok := p.expect(token.Comma); !ok {
				break
			}
		}
	}
	p.expect(token.RParen)
	p.expect(token.Arrow)
	retTy := p.parseType()
	body := p.parseBody()

	paramRegs := make([]ast.ExprID, len(params))
	for i, pname := range params {
		paramRegs[i] = p.file.Exprs.NewRegisterFunArg(name.Span, pname, paramTypePh[i])
	}

	return ast.Func{
		Name:        name.Text,
		Generics:    generics,
		Params:      params,
		ParamTypePh: paramTypePh,
		ParamRegs:   paramRegs,
		RetTypePh:   retTy,
		Body:        body,
		Purity:      purity,
	}, true
}

// parseType parses Ident ("<" Type ("," Type)* ">")? — covers both a bare
// name like Int32/String/T and a one- or more-parameter type constructor
// like Array<Int32> or Ptr<T>.
func (p *parser) parseType() *ast.TypePlaceholder {
	name, ok := p.expect(token.Ident)
	if !ok {
		return &ast.TypePlaceholder{Name: "Invalid"}
	}
	tp := &ast.TypePlaceholder{Name: name.Text}
	if p.at(token.Lt) {
		p.advance()
		for !p.at(token.Gt) && !p.at(token.EOF) {
			tp.Params = append(tp.Params, p.parseType())
			if !p.at(token.Gt) {
				if _, ok := p.expect(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.Gt)
	}
	return tp
}

// parseBody parses "{" Expr "}" | "=" Expr.
func (p *parser) parseBody() ast.ExprID {
	if p.at(token.LBrace) {
		p.advance()
		e := p.parseExpr()
		p.expect(token.RBrace)
		return e
	}
	if _, ok := p.expect(token.Assign); !ok {
		return ast.NoExprID
	}
	return p.parseExpr()
}

// parseExpr parses a sequence of ";"-separated statements, each either a
// nested `def` or a binding/assignment/control-flow expression. A nested
// def is sequenced with whatever follows via OpSeq, mirroring how a
// top-level Binding's Body chains the rest of a block.
func (p *parser) parseExpr() ast.ExprID {
	first := p.parseStmt()
	if !p.at(token.Semi) {
		return first
	}
	span := p.cur.Span
	p.advance()
	rest := p.parseExpr()
	return p.file.Exprs.NewBinary(span, ast.OpSeq, first, rest)
}

func (p *parser) parseStmt() ast.ExprID {
	if p.at(token.KwDef) || p.at(token.KwIO) || p.at(token.KwImp) {
		span := p.cur.Span
		fn, ok := p.parseFuncDecl()
		if !ok {
			return ast.NoExprID
		}
		fnID := p.file.DeclareFunc(fn)
		return p.file.Exprs.NewFuncLit(span, fnID)
	}
	return p.parseBinding()
}

// parseBinding parses ("val"|"var") Ident "=" AssignExpr ";" Rest, where
// Rest is whatever parseExpr's caller sequences next — a Binding node's
// own Body is the continuation, so a binding consumes the rest of its
// enclosing block directly rather than relying on parseExpr's OpSeq glue.
func (p *parser) parseBinding() ast.ExprID {
	if !p.at(token.KwVar) && !p.at(token.KwVal) {
		return p.parseAssign()
	}
	mutable := p.at(token.KwVar)
	span := p.cur.Span
	p.advance()
	name, ok := p.expect(token.Ident)
	if !ok {
		return ast.NoExprID
	}
	p.expect(token.Assign)
	init := p.parseAssign()

	var body ast.ExprID
	if p.at(token.Semi) {
		p.advance()
		body = p.parseExpr()
	} else {
		body = init
	}
	return p.file.Exprs.NewBinding(span, name.Text, mutable, init, body)
}

func (p *parser) parseAssign() ast.ExprID {
	left := p.parseIf()
	if !p.at(token.Walrus) {
		return left
	}
	span := p.cur.Span
	p.advance()
	right := p.parseAssign()
	return p.file.Exprs.NewBinary(span, ast.OpAssign, left, right)
}

func (p *parser) parseIf() ast.ExprID {
	if !p.at(token.KwIf) {
		return p.parseWhile()
	}
	span := p.cur.Span
	p.advance()
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.LBrace)
	then := p.parseExpr()
	p.expect(token.RBrace)

	var els ast.ExprID
	if p.at(token.KwElse) {
		p.advance()
		p.expect(token.LBrace)
		els = p.parseExpr()
		p.expect(token.RBrace)
	}
	return p.file.Exprs.NewIf(span, cond, then, els)
}

func (p *parser) parseWhile() ast.ExprID {
	if !p.at(token.KwWhile) {
		return p.parseEq()
	}
	span := p.cur.Span
	p.advance()
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	p.expect(token.LBrace)
	body := p.parseExpr()
	p.expect(token.RBrace)
	return p.file.Exprs.NewWhile(span, cond, body)
}

func (p *parser) parseEq() ast.ExprID {
	left := p.parseJoin()
	for p.at(token.EqEq) {
		span := p.cur.Span
		p.advance()
		right := p.parseJoin()
		left = p.file.Exprs.NewBinary(span, ast.OpEq, left, right)
	}
	return left
}

func (p *parser) parseJoin() ast.ExprID {
	left := p.parseAdd()
	for p.at(token.PlusPlus) {
		span := p.cur.Span
		p.advance()
		right := p.parseAdd()
		left = p.file.Exprs.NewBinary(span, ast.OpJoinString, left, right)
	}
	return left
}

func (p *parser) parseAdd() ast.ExprID {
	left := p.parseMul()
	for p.at(token.Plus) || p.at(token.Minus) {
		op := ast.OpAdd
		if p.at(token.Minus) {
			op = ast.OpSubtract
		}
		span := p.cur.Span
		p.advance()
		right := p.parseMul()
		left = p.file.Exprs.NewBinary(span, op, left, right)
	}
	return left
}

func (p *parser) parseMul() ast.ExprID {
	left := p.parseUnary()
	for p.at(token.Star) {
		span := p.cur.Span
		p.advance()
		right := p.parseUnary()
		left = p.file.Exprs.NewBinary(span, ast.OpMultiply, left, right)
	}
	return left
}

func (p *parser) parseUnary() ast.ExprID {
	if p.at(token.KwNot) {
		span := p.cur.Span
		p.advance()
		operand := p.parseUnary()
		return p.file.Exprs.NewNot(span, operand)
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.ExprID {
	e := p.parsePrimary()
	for {
		switch {
		case p.at(token.Dot):
			span := p.cur.Span
			p.advance()
			field, ok := p.expect(token.Ident)
			if !ok {
				return e
			}
			e = p.file.Exprs.NewMember(span, e, field.Text)
		case p.at(token.LBracket):
			span := p.cur.Span
			p.advance()
			idx := p.parseExpr()
			p.expect(token.RBracket)
			e = p.file.Exprs.NewBinary(span, ast.OpArrayAccess, e, idx)
		default:
			return e
		}
	}
}

func (p *parser) parsePrimary() ast.ExprID {
	switch {
	case p.at(token.IntLit):
		tok := p.cur
		p.advance()
		var v int64
		if _, err := fmt.Sscanf(tok.Text, "%d", &v); err != nil {
			p.errf(diag.LexInvalidNumber, tok.Span, "malformed integer literal %q", tok.Text)
		}
		return p.file.Exprs.NewNumber(tok.Span, v)

	case p.at(token.StringLit):
		tok := p.cur
		p.advance()
		return p.file.Exprs.NewString(tok.Span, unquote(tok.Text))

	case p.at(token.LParen):
		p.advance()
		e := p.parseExpr()
		p.expect(token.RParen)
		return e

	case p.at(token.Ident):
		return p.parseIdentPrimary()

	default:
		p.errf(diag.SynUnexpectedToken, p.cur.Span, "expected an expression, found %s", p.cur.Kind)
		tok := p.cur
		p.advance()
		return p.file.Exprs.NewNumber(tok.Span, 0)
	}
}

// parseIdentPrimary disambiguates a bare variable reference, a call
// `name(args)`, and a struct constructor `Name { args }` — all three
// start with an Ident and only diverge on the token that follows.
func (p *parser) parseIdentPrimary() ast.ExprID {
	name := p.cur
	p.advance()

	if p.at(token.LParen) {
		p.advance()
		var args []ast.ExprID
		for !p.at(token.RParen) && !p.at(token.EOF) {
			args = append(args, p.parseAssign())
			if !p.at(token.RParen) {
				if _, ok := p.expect(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.RParen)
		return p.file.Exprs.NewCall(name.Span, name.Text, args)
	}

	if p.at(token.LBrace) {
		p.advance()
		var args []ast.ExprID
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			args = append(args, p.parseAssign())
			if !p.at(token.RBrace) {
				if _, ok := p.expect(token.Comma); !ok {
					break
				}
			}
		}
		p.expect(token.RBrace)
		return p.file.Exprs.NewConstructor(name.Span, name.Text, nil, args)
	}

	return p.file.Exprs.NewVariable(name.Span, name.Text)
}

// unquote strips the surrounding quotes and resolves the lexer's small
// escape set; scanString already validated the lexeme is well-formed.
func unquote(text string) string {
	if len(text) < 2 {
		return text
	}
	inner := text[1 : len(text)-1]
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
			switch inner[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			default:
				out = append(out, inner[i])
			}
			continue
		}
		out = append(out, inner[i])
	}
	return string(out)
}
