package condition

import (
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupOf(m map[string]flag.Value) Lookup {
	return func(name string) (flag.Value, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestParseAndEval(t *testing.T) {
	flags := lookupOf(map[string]flag.Value{
		"seen":     flag.Bool(true),
		"route":    flag.Int(2),
		"choice_1": flag.Int(1),
		"name":     flag.String("aoi"),
	})

	tests := []struct {
		src  string
		want bool
	}{
		{"seen==true", true},
		{"seen == false", false},
		{"route==2", true},
		{"route!=2", false},
		{"choice_1==1", true},
		{`name=="aoi"`, true},
		{"name==aoi", true},
		{"seen==true AND route==2", true},
		{"seen==true AND route==3", false},
		{"route==3 OR name==aoi", true},
		// AND binds tighter: false OR (true AND true)
		{"route==9 OR seen==true AND choice_1==1", true},
		// (true AND false) OR false
		{"seen==true AND route==9 OR name==x", false},
		{"seen==true and route==2", true},
		{"seen==true && route==2 || x==1", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Eval(flags))
		})
	}
}

func TestUnsetFlagsAreZero(t *testing.T) {
	empty := lookupOf(nil)
	for _, src := range []string{"x==false", "x==0", `x==""`, "x!=true", "x!=1"} {
		e, err := Parse(src)
		require.NoError(t, err, src)
		assert.True(t, e.Eval(empty), src)
	}
	e, err := Parse("x==true")
	require.NoError(t, err)
	assert.False(t, e.Eval(empty))
	assert.False(t, e.Eval(nil))
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "   ", "seen", "seen=true", "==1", "a==1 AND", "a==1 OR b", "1a==2", "a==b==c"} {
		_, err := Parse(src)
		assert.Error(t, err, src)
	}
}

func TestQuotedLiteralKeepsConnectives(t *testing.T) {
	flags := lookupOf(map[string]flag.Value{
		"title": flag.String("a OR b"),
		"motto": flag.String("rock AND roll"),
		"seen":  flag.Bool(true),
	})

	tests := []struct {
		src   string
		terms int
		want  bool
	}{
		{`title=="a OR b"`, 1, true},
		{`title=='a OR b'`, 1, true},
		{`motto=='rock AND roll' AND seen==true`, 2, true},
		{`title=='x OR y' OR seen==false`, 2, false},
		{`title=="a OR b" || motto=="nope"`, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			e, err := Parse(tt.src)
			require.NoError(t, err)
			n := 0
			for _, all := range e.Any {
				n += len(all)
			}
			assert.Equal(t, tt.terms, n)
			assert.Equal(t, tt.want, e.Eval(flags))
		})
	}
}

func TestFlags(t *testing.T) {
	e, err := Parse("a==1 AND b==2 OR a!=3")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, e.Flags())
	assert.Equal(t, "a==1 AND b==2 OR a!=3", e.String())
}
