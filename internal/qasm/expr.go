package qasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Eval computes a QASM parameter expression: numbers, pi, + - * / ^,
// unary minus, parentheses and the functions sin, cos, tan, exp, ln, sqrt.
func Eval(expr string) (float64, error) {
	e := &exprParser{src: strings.TrimSpace(expr)}
	v, err := e.sum()
	if err != nil {
		return 0, err
	}
	e.skip()
	if e.pos != len(e.src) {
		return 0, fmt.Errorf("%w: trailing %q in %q", ErrSyntax, e.src[e.pos:], expr)
	}
	return v, nil
}

type exprParser struct {
	src string
	pos int
}

var funcs = map[string]func(float64) float64{
	"sin":  math.Sin,
	"cos":  math.Cos,
	"tan":  math.Tan,
	"exp":  math.Exp,
	"ln":   math.Log,
	"sqrt": math.Sqrt,
}

func (e *exprParser) skip() {
	for e.pos < len(e.src) && e.src[e.pos] == ' ' {
		e.pos++
	}
}

func (e *exprParser) peek() byte {
	e.skip()
	if e.pos >= len(e.src) {
		return 0
	}
	return e.src[e.pos]
}

func (e *exprParser) sum() (float64, error) {
	v, err := e.product()
	if err != nil {
		return 0, err
	}
	for {
		switch e.peek() {
		case '+':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			e.pos++
			r, err := e.product()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (e *exprParser) product() (float64, error) {
	v, err := e.power()
	if err != nil {
		return 0, err
	}
	for {
		switch e.peek() {
		case '*':
			e.pos++
			r, err := e.power()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			e.pos++
			r, err := e.power()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrSyntax)
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (e *exprParser) power() (float64, error) {
	base, err := e.unary()
	if err != nil {
		return 0, err
	}
	if e.peek() == '^' {
		e.pos++
		exp, err := e.power()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (e *exprParser) unary() (float64, error) {
	switch e.peek() {
	case '-':
		e.pos++
		v, err := e.unary()
		return -v, err
	case '+':
		e.pos++
		return e.unary()
	}
	return e.atom()
}

func (e *exprParser) atom() (float64, error) {
	c := e.peek()
	switch {
	case c == '(':
		e.pos++
		v, err := e.sum()
		if err != nil {
			return 0, err
		}
		if e.peek() != ')' {
			return 0, fmt.Errorf("%w: missing ')' in %q", ErrSyntax, e.src)
		}
		e.pos++
		return v, nil
	case c == '.' || unicode.IsDigit(rune(c)):
		start := e.pos
		for e.pos < len(e.src) && (unicode.IsDigit(rune(e.src[e.pos])) || e.src[e.pos] == '.' ||
			e.src[e.pos] == 'e' || e.src[e.pos] == 'E' ||
			((e.src[e.pos] == '-' || e.src[e.pos] == '+') && (e.src[e.pos-1] == 'e' || e.src[e.pos-1] == 'E'))) {
			e.pos++
		}
		return strconv.ParseFloat(e.src[start:e.pos], 64)
	case unicode.IsLetter(rune(c)):
		start := e.pos
		for e.pos < len(e.src) && (unicode.IsLetter(rune(e.src[e.pos])) || unicode.IsDigit(rune(e.src[e.pos]))) {
			e.pos++
		}
		ident := e.src[start:e.pos]
		if ident == "pi" {
			return math.Pi, nil
		}
		fn, ok := funcs[ident]
		if !ok {
			return 0, fmt.Errorf("%w: unknown identifier %q", ErrSyntax, ident)
		}
		if e.peek() != '(' {
			return 0, fmt.Errorf("%w: %s needs an argument", ErrSyntax, ident)
		}
		arg, err := e.atom()
		if err != nil {
			return 0, err
		}
		return fn(arg), nil
	}
	return 0, fmt.Errorf("%w: unexpected %q in %q", ErrSyntax, string(c), e.src)
}
