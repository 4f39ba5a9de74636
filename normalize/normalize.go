// Package normalize provides the text normalizers applied before encoding.
package normalize

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/unicode/norm"
)

// Normalizer transforms text before it is encoded. Implementations must be
// pure and safe for concurrent use.
type Normalizer interface {
	Normalize(string) string
}

// Func adapts a plain function to a Normalizer.
type Func func(string) string

func (f Func) Normalize(s string) string {
	return f(s)
}

// Identity returns its input unchanged.
type Identity struct{}

func (Identity) Normalize(s string) string {
	return s
}

// Whitespace collapses each run of consecutive spaces and tabs into the
// first character of the run.
type Whitespace struct{}

func (Whitespace) Normalize(s string) string {
	if !hasRun(s) {
		return s
	}

	var sb strings.Builder
	sb.Grow(len(s))

	run := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isHorizontalSpace(c) {
			if run {
				continue
			}
			run = true
		} else {
			run = false
		}

		sb.WriteByte(c)
	}

	return sb.String()
}

func isHorizontalSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

func hasRun(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if isHorizontalSpace(s[i]) && isHorizontalSpace(s[i+1]) {
			return true
		}
	}
	return false
}

// NFC applies Unicode canonical composition.
type NFC struct{}

func (NFC) Normalize(s string) string {
	return norm.NFC.String(s)
}

// Pattern replaces every match of a regular expression.
type Pattern struct {
	re          *regexp2.Regexp
	replacement string
}

// NewPattern compiles expr with RE2-compatible syntax. replacement may refer
// to capture groups as $1, ${name}.
func NewPattern(expr, replacement string) (*Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.RE2)
	if err != nil {
		return nil, err
	}

	return &Pattern{re: re, replacement: replacement}, nil
}

// Normalize returns s unchanged if the replacement fails, which only
// happens when the expression's match timeout is exceeded.
func (p *Pattern) Normalize(s string) string {
	out, err := p.re.Replace(s, p.replacement, -1, -1)
	if err != nil {
		return s
	}
	return out
}

// Chain applies each normalizer in order.
type Chain []Normalizer

func (c Chain) Normalize(s string) string {
	for _, n := range c {
		s = n.Normalize(s)
	}
	return s
}

// Parse returns the normalizer registered under name. Names may be joined
// with "+" to chain normalizers, applied left to right.
func Parse(name string) (Normalizer, error) {
	if name == "" {
		return Whitespace{}, nil
	}

	var chain Chain
	for _, part := range strings.Split(name, "+") {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "whitespace":
			chain = append(chain, Whitespace{})
		case "none", "identity":
			chain = append(chain, Identity{})
		case "nfc":
			chain = append(chain, NFC{})
		case "control":
			p, err := NewPattern(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`, "")
			if err != nil {
				return nil, err
			}
			chain = append(chain, p)
		default:
			return nil, fmt.Errorf("unknown normalizer %q", part)
		}
	}

	if len(chain) == 1 {
		return chain[0], nil
	}

	return chain, nil
}
