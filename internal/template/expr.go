package template

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// EvalExpr evaluates an arithmetic expression over template variables.
// Supports: decimal literals, variable names, unary minus, + - * /, and
// parentheses.
// Example: "(i-1)*220 + 20" with vars {"i": 3} => 460
func EvalExpr(expr string, vars map[string]float64) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}

	p := &parser{input: expr, vars: vars}
	result, err := p.parseAddSub()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d: %c", p.pos, p.input[p.pos])
	}
	return result, nil
}

type parser struct {
	input string
	pos   int
	vars  map[string]float64
}

func (p *parser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseAddSub() (float64, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseMulDiv()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseMulDiv() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
			continue
		}
		if right == 0 {
			return 0, fmt.Errorf("division by zero at position %d", p.pos)
		}
		left /= right
	}
}

func (p *parser) parseUnary() (float64, error) {
	if ch, ok := p.peek(); ok && ch == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch {
	case ch == '(':
		p.pos++
		val, err := p.parseAddSub()
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return 0, fmt.Errorf("expected ')' at position %d", p.pos)
		}
		p.pos++
		return val, nil

	case unicode.IsDigit(rune(ch)) || ch == '.':
		start := p.pos
		for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
			p.pos++
		}
		return strconv.ParseFloat(p.input[start:p.pos], 64)

	case unicode.IsLetter(rune(ch)) || ch == '_':
		start := p.pos
		for p.pos < len(p.input) && (unicode.IsLetter(rune(p.input[p.pos])) || unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '_') {
			p.pos++
		}
		name := p.input[start:p.pos]
		val, ok := p.vars[name]
		if !ok {
			return 0, fmt.Errorf("undefined variable: %s", name)
		}
		return val, nil
	}

	return 0, fmt.Errorf("unexpected character '%c' at position %d", ch, p.pos)
}

func (p *parser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

// ExpandTemplate replaces every {expr} block in tmpl with its value.
// Example: "Step {i}" with vars {"i": 3} => "Step 3"
func ExpandTemplate(tmpl string, vars map[string]float64) (string, error) {
	var result strings.Builder
	i := 0
	for i < len(tmpl) {
		if tmpl[i] != '{' {
			result.WriteByte(tmpl[i])
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("unmatched '{' at position %d", i)
		}
		expr := tmpl[i+1 : i+end]
		val, err := EvalExpr(expr, vars)
		if err != nil {
			return "", fmt.Errorf("evaluating expression '%s': %w", expr, err)
		}
		result.WriteString(strconv.FormatFloat(val, 'f', -1, 64))
		i += end + 1
	}
	return result.String(), nil
}
