package ir_test

import (
	"encoding/json"
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const sample = `[bg_show file="room" time="0.5"]
[bgm file="theme"]
[chara_show name="aoi" eye="smile" x="0.3"]
【aoi】「Good morning.」「It's early.」[stop]
[chara_move name="aoi" x="0.7" steps="2" after="start"]
[choice option1="Stay" option2="Leave"]
[if condition="choice_1==2 OR late==true"]
[flag name="left" value="true"]
[event unlock="street" lock="room"]
[endif]
[bgm_pause fade="2"]
[fadeout color="#000000"]
`

func TestDumpDeterministic(t *testing.T) {
	for _, f := range []ir.Format{ir.FormatJSON, ir.FormatYAML} {
		a, err := ir.Dump(build(t, sample), f)
		require.NoError(t, err)
		b, err := ir.Dump(build(t, sample), f)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), "format %s", f)
	}
}

func TestDumpConformsToSchema(t *testing.T) {
	doc, err := ir.Dump(build(t, sample), ir.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, ir.Validate(doc))
}

func TestDumpShape(t *testing.T) {
	doc, err := ir.Dump(build(t, sample), ir.FormatJSON)
	require.NoError(t, err)

	var out struct {
		Steps []struct {
			ID   int `json:"id"`
			Text *struct {
				Speaker string `json:"speaker"`
				Body    string `json:"body"`
				Scroll  bool   `json:"scroll"`
			} `json:"text"`
			Actions []struct {
				Action    string         `json:"action"`
				Target    string         `json:"target"`
				Params    map[string]any `json:"params"`
				Animation *struct {
					OnAdvance string `json:"on_advance"`
					Steps     int    `json:"steps"`
					After     string `json:"after"`
				} `json:"animation"`
			} `json:"actions"`
			SourceIndex []int `json:"source_index"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(doc, &out))
	require.NotEmpty(t, out.Steps)

	first := out.Steps[0]
	require.NotNil(t, first.Text)
	assert.Equal(t, "Good morning.", first.Text.Body)
	assert.False(t, first.Text.Scroll)
	require.Len(t, first.Actions, 3)
	assert.Equal(t, "show_background", first.Actions[0].Action)
	assert.Equal(t, "block", first.Actions[0].Animation.OnAdvance)
	assert.Equal(t, "play_bgm", first.Actions[1].Action)
	assert.Nil(t, first.Actions[1].Animation)
	assert.Equal(t, "enter_character", first.Actions[2].Action)
	assert.Equal(t, "aoi", first.Actions[2].Target)

	second := out.Steps[1]
	require.NotNil(t, second.Text)
	assert.True(t, second.Text.Scroll)

	var move bool
	for _, s := range out.Steps {
		for _, a := range s.Actions {
			if a.Action == "move_character" {
				move = true
				require.NotNil(t, a.Animation)
				assert.Equal(t, "continue", a.Animation.OnAdvance)
				assert.Equal(t, 2, a.Animation.Steps)
				assert.Equal(t, "start", a.Animation.After)
			}
		}
	}
	assert.True(t, move)
}

func TestDumpYAMLMatchesJSON(t *testing.T) {
	p := build(t, sample)
	js, err := ir.Dump(p, ir.FormatJSON)
	require.NoError(t, err)
	ym, err := ir.Dump(p, ir.FormatYAML)
	require.NoError(t, err)

	var fromJSON, fromYAML map[string]any
	require.NoError(t, json.Unmarshal(js, &fromJSON))
	require.NoError(t, yaml.Unmarshal(ym, &fromYAML))
	assert.Len(t, fromYAML["steps"], len(fromJSON["steps"].([]any)))
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing steps":  `{}`,
		"bad action":     `{"steps":[{"id":0,"source_index":[0],"actions":[{"action":"explode"}]}]}`,
		"bad policy":     `{"steps":[{"id":0,"source_index":[0],"actions":[{"action":"fade_in","animation":{"type":"x","on_advance":"later","duration":1}}]}]}`,
		"negative id":    `{"steps":[{"id":-1,"source_index":[]}]}`,
		"text sans body": `{"steps":[{"id":0,"source_index":[],"text":{"speaker":"","scroll":false}}]}`,
	}
	for name, doc := range cases {
		assert.Error(t, ir.Validate([]byte(doc)), name)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ir.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, ir.FormatJSON, f)
	f, err = ir.ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, ir.FormatYAML, f)
	_, err = ir.ParseFormat("xml")
	assert.ErrorIs(t, err, ir.ErrUnknownFormat)
}
