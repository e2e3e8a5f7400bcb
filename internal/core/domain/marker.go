package domain

import (
	"maps"
	"slices"
	"strings"
	"unicode"

	version "github.com/aquasecurity/go-pep440-version"
	"go.trai.ch/zerr"
)

// MarkerEnv holds the values of PEP 508 marker variables for the target interpreter.
type MarkerEnv map[string]string

// DefaultMarkerEnv returns a marker environment for CPython of the given version
// on the given sys.platform and platform.machine().
func DefaultMarkerEnv(pythonVersion, platform, machine string) MarkerEnv {
	short := pythonVersion
	if parts := strings.Split(pythonVersion, "."); len(parts) > 2 {
		short = strings.Join(parts[:2], ".")
	}
	full := pythonVersion
	if strings.Count(full, ".") == 1 {
		full += ".0"
	}

	system := map[string]string{"linux": "Linux", "darwin": "Darwin", "win32": "Windows"}[platform]
	osName := "posix"
	if platform == "win32" {
		osName = "nt"
	}

	return MarkerEnv{
		"python_version":                 short,
		"python_full_version":            full,
		"implementation_version":         full,
		"implementation_name":            "cpython",
		"platform_python_implementation": "CPython",
		"sys_platform":                   platform,
		"platform_system":                system,
		"os_name":                        osName,
		"platform_machine":               machine,
		"platform_release":               "",
		"platform_version":               "",
	}
}

// Marker is a parsed PEP 508 environment marker.
type Marker interface {
	eval(env MarkerEnv) bool
}

// EvaluateMarker reports whether a marker holds in env. When extras are given the
// marker holds if it is true for at least one of them; otherwise "extra" is empty.
func EvaluateMarker(raw string, env MarkerEnv, extras []string) (bool, error) {
	if strings.TrimSpace(raw) == "" {
		return true, nil
	}
	m, err := ParseMarker(raw)
	if err != nil {
		return false, err
	}

	if len(extras) == 0 {
		extras = []string{""}
	}
	for _, extra := range extras {
		scoped := maps.Clone(env)
		if scoped == nil {
			scoped = MarkerEnv{}
		}
		scoped["extra"] = extra
		if m.eval(scoped) {
			return true, nil
		}
	}
	return false, nil
}

// ParseMarker parses a PEP 508 marker expression.
func ParseMarker(raw string) (Marker, error) {
	tokens, err := tokenizeMarker(raw)
	if err != nil {
		return nil, err
	}
	p := &markerParser{tokens: tokens, raw: raw}
	m, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, p.fail("unexpected trailing input")
	}
	return m, nil
}

type markerTokenKind int

const (
	tokIdent markerTokenKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type markerToken struct {
	kind  markerTokenKind
	value string
}

func tokenizeMarker(raw string) ([]markerToken, error) {
	var tokens []markerToken
	r := []rune(raw)
	for i := 0; i < len(r); {
		c := r[i]
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			tokens = append(tokens, markerToken{kind: tokLParen})
			i++
		case c == ')':
			tokens = append(tokens, markerToken{kind: tokRParen})
			i++
		case c == '\'' || c == '"':
			end := slices.Index(r[i+1:], c)
			if end < 0 {
				return nil, zerr.With(zerr.Wrap(ErrInvalidMarker, "unterminated string"), "marker", raw)
			}
			tokens = append(tokens, markerToken{kind: tokString, value: string(r[i+1 : i+1+end])})
			i += end + 2
		case strings.ContainsRune("<>=!~", c):
			j := i
			for j < len(r) && strings.ContainsRune("<>=!~", r[j]) {
				j++
			}
			tokens = append(tokens, markerToken{kind: tokOp, value: string(r[i:j])})
			i = j
		case unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '.':
			j := i
			for j < len(r) && (unicode.IsLetter(r[j]) || unicode.IsDigit(r[j]) || r[j] == '_' || r[j] == '.') {
				j++
			}
			tokens = append(tokens, markerToken{kind: tokIdent, value: string(r[i:j])})
			i = j
		default:
			return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidMarker, "unexpected character"), "marker", raw), "char", string(c))
		}
	}
	return tokens, nil
}

type markerParser struct {
	tokens []markerToken
	pos    int
	raw    string
}

func (p *markerParser) fail(reason string) error {
	return zerr.With(zerr.Wrap(ErrInvalidMarker, reason), "marker", p.raw)
}

func (p *markerParser) peekIdent(word string) bool {
	return p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokIdent && p.tokens[p.pos].value == word
}

func (p *markerParser) parseOr() (Marker, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekIdent("or") {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerOr{left, right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (Marker, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peekIdent("and") {
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = markerAnd{left, right}
	}
	return left, nil
}

func (p *markerParser) parseAtom() (Marker, error) {
	if p.pos >= len(p.tokens) {
		return nil, p.fail("unexpected end of marker")
	}
	if p.tokens[p.pos].kind == tokLParen {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokRParen {
			return nil, p.fail("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}

	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return markerCompare{left: left, op: op, right: right}, nil
}

func (p *markerParser) parseOperator() (string, error) {
	if p.pos >= len(p.tokens) {
		return "", p.fail("missing operator")
	}
	tok := p.tokens[p.pos]
	switch {
	case tok.kind == tokOp:
		switch tok.value {
		case "<", "<=", "==", "!=", ">", ">=", "~=", "===":
			p.pos++
			return tok.value, nil
		}
	case tok.kind == tokIdent && tok.value == "in":
		p.pos++
		return "in", nil
	case tok.kind == tokIdent && tok.value == "not":
		if p.pos+1 < len(p.tokens) && p.tokens[p.pos+1].kind == tokIdent && p.tokens[p.pos+1].value == "in" {
			p.pos += 2
			return "not in", nil
		}
	}
	return "", p.fail("invalid operator " + tok.value)
}

func (p *markerParser) parseValue() (markerValue, error) {
	if p.pos >= len(p.tokens) {
		return markerValue{}, p.fail("missing value")
	}
	tok := p.tokens[p.pos]
	switch tok.kind {
	case tokString:
		p.pos++
		return markerValue{literal: tok.value}, nil
	case tokIdent:
		if !markerVariables[tok.value] {
			return markerValue{}, p.fail("unknown variable " + tok.value)
		}
		p.pos++
		return markerValue{variable: tok.value}, nil
	default:
		return markerValue{}, p.fail("expected a variable or a quoted string")
	}
}

var markerVariables = map[string]bool{
	"python_version":                 true,
	"python_full_version":            true,
	"os_name":                        true,
	"sys_platform":                   true,
	"platform_release":               true,
	"platform_system":                true,
	"platform_version":               true,
	"platform_machine":               true,
	"platform_python_implementation": true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
}

type markerValue struct {
	variable string
	literal  string
}

func (v markerValue) resolve(env MarkerEnv) string {
	if v.variable == "" {
		return v.literal
	}
	return env[v.variable]
}

type markerAnd struct{ left, right Marker }

func (m markerAnd) eval(env MarkerEnv) bool { return m.left.eval(env) && m.right.eval(env) }

type markerOr struct{ left, right Marker }

func (m markerOr) eval(env MarkerEnv) bool { return m.left.eval(env) || m.right.eval(env) }

type markerCompare struct {
	left  markerValue
	op    string
	right markerValue
}

func (m markerCompare) eval(env MarkerEnv) bool {
	lhs := m.left.resolve(env)
	rhs := m.right.resolve(env)

	if m.left.variable == "extra" || m.right.variable == "extra" {
		lhs, rhs = CanonicalName(lhs), CanonicalName(rhs)
	}

	switch m.op {
	case "in":
		return strings.Contains(rhs, lhs)
	case "not in":
		return !strings.Contains(rhs, lhs)
	}

	if lv, err := version.Parse(lhs); err == nil {
		if _, err := version.Parse(rhs); err == nil {
			if ok, err := SpecifierContains(m.op+rhs, lv); err == nil {
				return ok
			}
		}
	}

	switch m.op {
	case "==", "===":
		return lhs == rhs
	case "!=":
		return lhs != rhs
	case "<":
		return lhs < rhs
	case "<=":
		return lhs <= rhs
	case ">":
		return lhs > rhs
	case ">=":
		return lhs >= rhs
	default:
		return false
	}
}
