package formula

import "fmt"

// MaxDepth bounds nesting of parentheses and 'not'.
const MaxDepth = 256

// Parse turns expr into an expression tree.
//
//	expr       := or
//	or         := and ( '|' and )*
//	and        := negation ( '&' negation )*
//	negation   := 'not' negation | comparison
//	comparison := operand ( CMP operand )*
//	operand    := ['-'] NUMBER | BOOL | cfg.NAME | NAME | '(' expr ')'
//
// A chain a < b < c means a < b & b < c.
func Parse(expr string) (Node, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{expr: expr, toks: toks}
	if p.peek().kind == tokEOF {
		return nil, p.errorf(p.peek(), "empty expression")
	}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errorf(t, "unexpected %s %q", t.kind, t.text)
	}
	return n, nil
}

type parser struct {
	expr string
	toks  []token
	pos   int
	depth int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) enter(t token) error {
	p.depth++
	if p.depth > MaxDepth {
		return p.errorf(t, "expression nested too deeply (max %d)", MaxDepth)
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) errorf(t token, format string, args ...any) *CompileError {
	return &CompileError{Expr: p.expr, Pos: t.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseOr() (Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Node, error) {
	left, err := p.parseNegation()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseNegation()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNegation() (Node, error) {
	if t := p.peek(); t.kind == tokNot {
		p.next()
		if err := p.enter(t); err != nil {
			return nil, err
		}
		operand, err := p.parseNegation()
		p.leave()
		if err != nil {
			return nil, err
		}
		return &Not{Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Node, error) {
	first, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCmp {
		return first, nil
	}
	var out Node
	left := first
	for p.peek().kind == tokCmp {
		op := p.next().text
		right, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		cmp := &Comparison{Op: op, Left: left, Right: right}
		if out == nil {
			out = cmp
		} else {
			out = &Logical{Op: OpAnd, Left: out, Right: cmp}
		}
		left = right
	}
	return out, nil
}

func (p *parser) parseOperand() (Node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &Literal{Value: Number(t.num)}, nil
	case tokMinus:
		num := p.next()
		if num.kind != tokNumber {
			return nil, p.errorf(t, "unary minus only applies to numeric literals")
		}
		return &Literal{Value: Number(-num.num)}, nil
	case tokTrue:
		return &Literal{Value: Bool(true)}, nil
	case tokFalse:
		return &Literal{Value: Bool(false)}, nil
	case tokThreshold:
		return &ThresholdRef{Name: t.text}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return nil, p.errorf(t, "function calls are not supported: %s(...)", t.text)
		}
		return &FeatureRef{Name: t.text}, nil
	case tokLParen:
		if err := p.enter(t); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		p.leave()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, p.errorf(closing, "expected ')' but found %s", closing.kind)
		}
		return inner, nil
	case tokEOF:
		return nil, p.errorf(t, "unexpected end of expression")
	default:
		return nil, p.errorf(t, "unexpected %s %q", t.kind, t.text)
	}
}
