// Package condition parses and evaluates the flag conditions used by
// [if condition="..."]: comparisons joined by AND / OR, where AND binds
// tighter than OR.
//
//	seen==true AND route!=2 OR debug==true
package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kasuganosora/scenarioplayer/game/flag"
)

// ErrEmpty is returned for a blank condition.
var ErrEmpty = errors.New("condition: empty expression")

// Lookup resolves a flag by name. ok is false for unset flags.
type Lookup func(name string) (v flag.Value, ok bool)

// Op is a comparison operator.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
)

// Comparison is one `name op literal` term.
type Comparison struct {
	Flag  string
	Op    Op
	Value flag.Value
}

// Eval compares the flag against the literal. An unset flag compares equal
// to false, 0 and "".
func (c Comparison) Eval(lookup Lookup) bool {
	v, ok := lookup(c.Flag)
	var eq bool
	if ok {
		eq = v.Equal(c.Value)
	} else {
		eq = c.Value.IsZero()
	}
	if c.Op == OpNe {
		return !eq
	}
	return eq
}

func (c Comparison) String() string {
	return c.Flag + string(c.Op) + c.Value.String()
}

// Expr is a disjunction of conjunctions of comparisons.
type Expr struct {
	Any [][]Comparison // OR of ANDs
	src string
}

// Eval evaluates the whole expression.
func (e Expr) Eval(lookup Lookup) bool {
	if lookup == nil {
		lookup = func(string) (flag.Value, bool) { return flag.Value{}, false }
	}
	for _, all := range e.Any {
		ok := true
		for _, c := range all {
			if !c.Eval(lookup) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// Flags returns every flag name referenced, in order of appearance.
func (e Expr) Flags() []string {
	var out []string
	seen := make(map[string]bool)
	for _, all := range e.Any {
		for _, c := range all {
			if !seen[c.Flag] {
				seen[c.Flag] = true
				out = append(out, c.Flag)
			}
		}
	}
	return out
}

// String returns the source text.
func (e Expr) String() string { return e.src }

var (
	orSplit    = regexp.MustCompile(`\s+(?:OR|or|\|\|)\s+`)
	andSplit   = regexp.MustCompile(`\s+(?:AND|and|&&)\s+`)
	comparison = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*(==|!=)\s*(.+)$`)
)

// Parse compiles src.
func Parse(src string) (Expr, error) {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return Expr{}, ErrEmpty
	}
	expr := Expr{src: trimmed}
	for _, disj := range split(trimmed, orSplit) {
		var all []Comparison
		for _, term := range split(disj, andSplit) {
			term = strings.TrimSpace(term)
			m := comparison.FindStringSubmatch(term)
			if m == nil {
				return Expr{}, fmt.Errorf("condition: malformed term %q", term)
			}
			lit := strings.TrimSpace(m[3])
			if lit == "" || (!quoted(lit) && strings.ContainsAny(lit, " \t=!")) {
				return Expr{}, fmt.Errorf("condition: malformed value in %q", term)
			}
			all = append(all, Comparison{Flag: m[1], Op: Op(m[2]), Value: flag.Parse(lit)})
		}
		expr.Any = append(expr.Any, all)
	}
	return expr, nil
}

// split cuts s at connectives matched by sep, ignoring those inside quoted
// literals. An unterminated quote runs to the end of s.
func split(s string, sep *regexp.Regexp) []string {
	var spans [][2]int
	open := -1
	var q byte
	for i := 0; i < len(s); i++ {
		switch {
		case open < 0 && (s[i] == '"' || s[i] == '\''):
			open, q = i, s[i]
		case open >= 0 && s[i] == q:
			spans = append(spans, [2]int{open, i + 1})
			open = -1
		}
	}
	if open >= 0 {
		spans = append(spans, [2]int{open, len(s)})
	}
	inQuote := func(pos int) bool {
		for _, sp := range spans {
			if pos >= sp[0] && pos < sp[1] {
				return true
			}
		}
		return false
	}

	var out []string
	last := 0
	for _, m := range sep.FindAllStringIndex(s, -1) {
		if inQuote(m[0]) {
			continue
		}
		out = append(out, s[last:m[0]])
		last = m[1]
	}
	return append(out, s[last:])
}

func quoted(s string) bool {
	return len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\'')
}
