package loader

import (
	"fmt"
	"strings"
	"unicode"
)

// typeExpr is a parsed type reference such as IComparable<T>.
type typeExpr struct {
	name string
	args []typeExpr
}

func (e typeExpr) String() string {
	if len(e.args) == 0 {
		return e.name
	}
	args := make([]string, len(e.args))
	for i, a := range e.args {
		args[i] = a.String()
	}
	return e.name + "<" + strings.Join(args, ", ") + ">"
}

// parseTypeExpr parses name or name<arg, ...>, nested to any depth.
func parseTypeExpr(text string) (typeExpr, error) {
	p := &exprParser{src: []rune(text)}
	e, err := p.expr()
	if err != nil {
		return typeExpr{}, fmt.Errorf("type %q: %w", text, err)
	}
	p.skipSpace()
	if !p.done() {
		return typeExpr{}, fmt.Errorf("type %q: unexpected %q at %d", text, p.src[p.pos], p.pos)
	}
	return e, nil
}

type exprParser struct {
	src []rune
	pos int
}

func (p *exprParser) done() bool { return p.pos >= len(p.src) }

func (p *exprParser) skipSpace() {
	for !p.done() && unicode.IsSpace(p.src[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) expr() (typeExpr, error) {
	p.skipSpace()
	start := p.pos
	for !p.done() {
		r := p.src[p.pos]
		if r != '_' && r != '.' && !unicode.IsLetter(r) && !(p.pos > start && unicode.IsDigit(r)) {
			break
		}
		p.pos++
	}
	if p.pos == start {
		if p.done() {
			return typeExpr{}, fmt.Errorf("missing type name")
		}
		return typeExpr{}, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos)
	}
	e := typeExpr{name: string(p.src[start:p.pos])}

	p.skipSpace()
	if p.done() || p.src[p.pos] != '<' {
		return e, nil
	}
	p.pos++
	for {
		arg, err := p.expr()
		if err != nil {
			return typeExpr{}, err
		}
		e.args = append(e.args, arg)
		p.skipSpace()
		if p.done() {
			return typeExpr{}, fmt.Errorf("unclosed type argument list")
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return e, nil
		default:
			return typeExpr{}, fmt.Errorf("unexpected %q at %d", p.src[p.pos], p.pos)
		}
	}
}
