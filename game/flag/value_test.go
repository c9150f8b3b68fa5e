package flag

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Value
	}{
		{"true", Bool(true)},
		{"FALSE", Bool(false)},
		{"3", Int(3)},
		{"-12", Int(-12)},
		{`"3"`, String("3")},
		{"'yes'", String("yes")},
		{"route_a", String("route_a")},
		{"", String("")},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestEqualAcrossKinds(t *testing.T) {
	assert.True(t, Int(2).Equal(String("2")))
	assert.True(t, Bool(true).Equal(String("true")))
	assert.False(t, Int(2).Equal(Int(3)))
	assert.False(t, Bool(true).Equal(Int(1)))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Value{}.IsZero())
	assert.True(t, Int(0).IsZero())
	assert.True(t, String("").IsZero())
	assert.False(t, Bool(true).IsZero())
	assert.False(t, String("x").IsZero())
}

func TestEncodeDecode(t *testing.T) {
	for _, v := range []Value{Bool(true), Int(42), String("a:b")} {
		got, err := Decode(v.Encode())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := Decode("x")
	assert.Error(t, err)
	_, err = Decode("q:1")
	assert.Error(t, err)
	_, err = Decode("i:abc")
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"a": Bool(true), "b": Int(2), "c": String("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":true,"b":2,"c":"x"}`, string(data))

	var back map[string]Value
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Int(2), back["b"])
	assert.Equal(t, Bool(true), back["a"])
}
