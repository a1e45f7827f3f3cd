package formula

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokThreshold
	tokTrue
	tokFalse
	tokAnd
	tokOr
	tokNot
	tokMinus
	tokLParen
	tokRParen
	tokCmp
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of expression"
	case tokNumber:
		return "number"
	case tokIdent:
		return "identifier"
	case tokThreshold:
		return "threshold reference"
	case tokTrue, tokFalse:
		return "boolean"
	case tokAnd:
		return "'&'"
	case tokOr:
		return "'|'"
	case tokNot:
		return "'not'"
	case tokMinus:
		return "'-'"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokCmp:
		return "comparison"
	default:
		return "token"
	}
}

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

const thresholdPrefix = "cfg."

var keywords = map[string]tokenKind{
	"and":   tokAnd,
	"or":    tokOr,
	"not":   tokNot,
	"true":  tokTrue,
	"True":  tokTrue,
	"false": tokFalse,
	"False": tokFalse,
}

func isWordByte(c byte) bool {
	return c == '_' || c == '%' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize splits expr into tokens. '&' and '|' are operator characters and
// can never appear inside an identifier or number.
func tokenize(expr string) ([]token, error) {
	var out []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '&':
			out = append(out, token{kind: tokAnd, text: "&", pos: i})
			i++
		case c == '|':
			out = append(out, token{kind: tokOr, text: "|", pos: i})
			i++
		case c == '(':
			out = append(out, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			out = append(out, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '-':
			out = append(out, token{kind: tokMinus, text: "-", pos: i})
			i++
		case c == '>' || c == '<' || c == '=' || c == '!':
			op, err := scanComparison(expr, i)
			if err != nil {
				return nil, err
			}
			out = append(out, token{kind: tokCmp, text: op, pos: i})
			i += len(op)
		case isWordByte(c) || (c == '.' && i+1 < len(expr) && isDigit(expr[i+1])):
			tok, next, err := scanWord(expr, i)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
			i = next
		default:
			return nil, &CompileError{Expr: expr, Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	out = append(out, token{kind: tokEOF, pos: len(expr)})
	return out, nil
}

func scanComparison(expr string, i int) (string, error) {
	two := ""
	if i+1 < len(expr) {
		two = expr[i : i+2]
	}
	switch two {
	case ">=", "<=", "==", "!=":
		return two, nil
	}
	switch expr[i] {
	case '>', '<':
		return expr[i : i+1], nil
	case '=':
		return "", &CompileError{Expr: expr, Pos: i, Msg: "assignment is not supported, use '=='"}
	default:
		return "", &CompileError{Expr: expr, Pos: i, Msg: "unexpected '!', use 'not' or '!='"}
	}
}

// scanWord reads an identifier, number or cfg.<name> reference starting at i.
func scanWord(expr string, i int) (token, int, error) {
	start := i
	for i < len(expr) {
		c := expr[i]
		if isWordByte(c) || c == '.' || signedExponent(expr, start, i) {
			i++
			continue
		}
		break
	}
	word := expr[start:i]

	if strings.HasPrefix(word, thresholdPrefix) {
		name := word[len(thresholdPrefix):]
		if name == "" || strings.Contains(name, ".") || strings.Contains(name, "%") {
			return token{}, 0, &CompileError{Expr: expr, Pos: start, Msg: fmt.Sprintf("invalid threshold reference %q", word)}
		}
		return token{kind: tokThreshold, text: name, pos: start}, i, nil
	}
	if kind, ok := keywords[word]; ok {
		return token{kind: kind, text: word, pos: start}, i, nil
	}
	if looksNumeric(word) {
		f, err := strconv.ParseFloat(word, 64)
		if err != nil {
			return token{}, 0, &CompileError{Expr: expr, Pos: start, Msg: fmt.Sprintf("invalid number %q", word)}
		}
		return token{kind: tokNumber, text: word, num: f, pos: start}, i, nil
	}
	if strings.Contains(word, ".") {
		return token{}, 0, &CompileError{Expr: expr, Pos: start, Msg: fmt.Sprintf("attribute access is not supported: %q", word)}
	}
	return token{kind: tokIdent, text: word, pos: start}, i, nil
}

// signedExponent reports whether the sign at i belongs to a literal such as
// 1e-3 or 2.5E+2.
func signedExponent(expr string, start, i int) bool {
	c := expr[i]
	if c != '-' && c != '+' {
		return false
	}
	if i-start < 2 || i+1 >= len(expr) || !isDigit(expr[i+1]) {
		return false
	}
	if e := expr[i-1]; e != 'e' && e != 'E' {
		return false
	}
	digits := 0
	for j := start; j < i-1; j++ {
		switch {
		case isDigit(expr[j]):
			digits++
		case expr[j] != '.':
			return false
		}
	}
	return digits > 0
}

// looksNumeric reports whether word is a decimal literal such as 30, 0.04,
// .5, 1e3 or 1e-3. Words like 1H_vol stay identifiers.
func looksNumeric(word string) bool {
	if word == "" {
		return false
	}
	if !isDigit(word[0]) && word[0] != '.' {
		return false
	}
	if strings.ContainsAny(word, "_%") {
		return false
	}
	_, err := strconv.ParseFloat(word, 64)
	if err == nil {
		return true
	}
	// 1.2.3 and similar are malformed numbers rather than identifiers.
	for j := 0; j < len(word); j++ {
		c := word[j]
		if !isDigit(c) && c != '.' {
			return false
		}
	}
	return true
}
