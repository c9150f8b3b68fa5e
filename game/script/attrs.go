package script

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	errUnclosedQuote = errors.New("unclosed quote")
	errUnclosedTag   = errors.New("unclosed tag")
)

// rawTag is a lexed `[name key="value" ...]`.
type rawTag struct {
	name  string
	attrs map[string]string
	order []string
}

// lexTag reads one tag from s, which must start with '['. It returns the
// tag and the remainder of s after the closing ']'.
func lexTag(s string) (rawTag, string, error) {
	t := rawTag{attrs: make(map[string]string)}
	i := 1
	skipSpace := func() {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
	}
	readIdent := func() string {
		start := i
		for i < len(s) {
			c := s[i]
			if c == '_' || c == '-' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
				i++
				continue
			}
			break
		}
		return s[start:i]
	}

	skipSpace()
	t.name = strings.ToLower(readIdent())
	if t.name == "" {
		return t, "", errors.New("missing tag name")
	}
	for {
		skipSpace()
		if i >= len(s) {
			return t, "", errUnclosedTag
		}
		if s[i] == ']' {
			return t, s[i+1:], nil
		}
		key := strings.ToLower(readIdent())
		if key == "" {
			return t, "", fmt.Errorf("unexpected %q", s[i:i+1])
		}
		skipSpace()
		if i >= len(s) || s[i] != '=' {
			return t, "", fmt.Errorf("attribute %s has no value", key)
		}
		i++
		skipSpace()
		var val string
		if i < len(s) && (s[i] == '"' || s[i] == '\'') {
			q := s[i]
			end := strings.IndexByte(s[i+1:], q)
			if end < 0 {
				return t, "", errUnclosedQuote
			}
			val = s[i+1 : i+1+end]
			i += end + 2
		} else {
			start := i
			for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != ']' {
				if s[i] == '"' || s[i] == '\'' {
					return t, "", errUnclosedQuote
				}
				i++
			}
			val = s[start:i]
		}
		if _, dup := t.attrs[key]; dup {
			return t, "", fmt.Errorf("duplicate attribute %s", key)
		}
		t.attrs[key] = val
		t.order = append(t.order, key)
	}
}

// attrReader pulls typed attributes out of a tag, keeping the first error.
type attrReader struct {
	tag  rawTag
	used map[string]bool
	err  error
}

func newAttrReader(t rawTag) *attrReader {
	return &attrReader{tag: t, used: make(map[string]bool)}
}

func (r *attrReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *attrReader) lookup(name string) (string, bool) {
	v, ok := r.tag.attrs[name]
	if ok {
		r.used[name] = true
	}
	return v, ok
}

func (r *attrReader) has(name string) bool {
	_, ok := r.tag.attrs[name]
	return ok
}

// required returns a non-blank attribute or records an error.
func (r *attrReader) required(name string) string {
	v, ok := r.lookup(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		r.fail("missing required attribute %s", name)
	}
	return v
}

func (r *attrReader) optString(name string) *string {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

// optFloat parses a float within [lo, hi].
func (r *attrReader) optFloat(name string, lo, hi float64) *float64 {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		r.fail("attribute %s: %q is not a number", name, v)
		return nil
	}
	if f < lo || f > hi {
		r.fail("attribute %s: %v out of range [%v, %v]", name, f, lo, hi)
		return nil
	}
	return &f
}

func (r *attrReader) optInt(name string, lo, hi int) *int {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail("attribute %s: %q is not an integer", name, v)
		return nil
	}
	if n < lo || n > hi {
		r.fail("attribute %s: %d out of range [%d, %d]", name, n, lo, hi)
		return nil
	}
	return &n
}

func (r *attrReader) optBool(name string) *bool {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		b = true
	case "false", "0", "no", "off":
		b = false
	default:
		r.fail("attribute %s: %q is not a boolean", name, v)
		return nil
	}
	return &b
}

func (r *attrReader) optEnum(name string, allowed ...string) *string {
	v := r.optString(name)
	if v == nil {
		return nil
	}
	low := strings.ToLower(*v)
	for _, a := range allowed {
		if low == a {
			return &low
		}
	}
	r.fail("attribute %s: %q not one of %s", name, *v, strings.Join(allowed, "|"))
	return nil
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// optColor accepts a color name (letters only) or #RRGGBB.
func (r *attrReader) optColor(name string) *string {
	v := r.optString(name)
	if v == nil {
		return nil
	}
	if hexColor.MatchString(*v) {
		c := strings.ToUpper(*v)
		return &c
	}
	if *v == "" {
		r.fail("attribute %s: empty color", name)
		return nil
	}
	for _, c := range *v {
		if c > unicode.MaxASCII || !unicode.IsLetter(c) {
			r.fail("attribute %s: %q is not a color", name, *v)
			return nil
		}
	}
	c := strings.ToLower(*v)
	return &c
}

// list splits a comma-separated identifier list, dropping blanks.
func (r *attrReader) list(name string) []string {
	v, ok := r.lookup(name)
	if !ok {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// unused returns attributes the tag builder never looked at.
func (r *attrReader) unused() []string {
	var out []string
	for _, k := range r.tag.order {
		if !r.used[k] {
			out = append(out, k)
		}
	}
	return out
}
