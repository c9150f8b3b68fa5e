// Package flag holds story flags: typed values plus a store that persists
// every mutation through a pluggable backend.
package flag

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a flag value.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Value is a flag value. The zero Value is boolean false.
type Value struct {
	Kind Kind
	Bool bool
	Int  int
	Str  string
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns an integer value.
func Int(n int) Value { return Value{Kind: KindInt, Int: n} }

// String returns a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Parse interprets a literal from script markup.
// "true"/"false" become booleans, integers become ints, quoted or anything
// else becomes a string.
func Parse(raw string) Value {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		if (raw[0] == '"' && raw[len(raw)-1] == '"') || (raw[0] == '\'' && raw[len(raw)-1] == '\'') {
			return String(raw[1 : len(raw)-1])
		}
	}
	switch strings.ToLower(raw) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return Int(n)
	}
	return String(raw)
}

// String renders the value the way it would be written in a script.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.Itoa(v.Int)
	}
	return v.Str
}

// Equal compares two values. Values of different kinds compare by their
// rendered form, so Int(2) equals String("2").
func (v Value) Equal(o Value) bool {
	if v.Kind == o.Kind {
		switch v.Kind {
		case KindBool:
			return v.Bool == o.Bool
		case KindInt:
			return v.Int == o.Int
		default:
			return v.Str == o.Str
		}
	}
	return v.String() == o.String()
}

// IsZero reports whether v equals the value an unset flag stands for:
// false, 0 or the empty string.
func (v Value) IsZero() bool {
	switch v.Kind {
	case KindBool:
		return !v.Bool
	case KindInt:
		return v.Int == 0
	}
	return v.Str == ""
}

// Encode packs the value into a single string ("b:true", "i:3", "s:text")
// for key-value backends.
func (v Value) Encode() string {
	switch v.Kind {
	case KindBool:
		return "b:" + strconv.FormatBool(v.Bool)
	case KindInt:
		return "i:" + strconv.Itoa(v.Int)
	}
	return "s:" + v.Str
}

// Decode reverses Encode.
func Decode(s string) (Value, error) {
	if len(s) < 2 || s[1] != ':' {
		return Value{}, fmt.Errorf("flag: malformed encoded value %q", s)
	}
	body := s[2:]
	switch s[0] {
	case 'b':
		b, err := strconv.ParseBool(body)
		if err != nil {
			return Value{}, fmt.Errorf("flag: decode bool: %w", err)
		}
		return Bool(b), nil
	case 'i':
		n, err := strconv.Atoi(body)
		if err != nil {
			return Value{}, fmt.Errorf("flag: decode int: %w", err)
		}
		return Int(n), nil
	case 's':
		return String(body), nil
	}
	return Value{}, fmt.Errorf("flag: unknown value kind %q", s[0])
}

// MarshalJSON writes the value as a native JSON bool, number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	}
	return json.Marshal(v.Str)
}

// UnmarshalJSON accepts a JSON bool, integer or string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = Bool(b)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Int(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("flag: not a bool, int or string: %s", string(data))
	}
	*v = String(s)
	return nil
}
