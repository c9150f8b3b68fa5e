package script

import (
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func parse(t *testing.T, src string) ([]Event, []Diagnostic) {
	t.Helper()
	return NewParser(zap.NewNop()).Parse(src)
}

func kinds(events []Event) []Kind {
	out := make([]Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind()
	}
	return out
}

func TestParseFullVocabulary(t *testing.T) {
	src := `// opening
[bg file="room"]
[bg_show file="street" time="2"]
[bg_move x="0.2" time="1.5"]
[bgm file="theme" volume="0.8" loop="false"]
[chara_show name="aoi" eye="smile" x="0.3"]
「Good morning.」
[chara_shift name="aoi" mouth="open"]
[chara_move name="aoi" x="0.7" steps="2" after="start"]
[chara_hide name="aoi" fade="0.5"]
[bgm_pause fade="2"]
[bgm_unpause]
[se file="door" repeat="2"]
[scroll_stop]
[choice option1="Left" option2="Right"]
[if condition="choice_1==1"]
[flag name="went_left" value="true"]
[endif]
[event unlock="cg_01, cg_02" lock="cg_03"]
[fadeout color="#ff0000" time="1"]
[fadein color="white"]
`
	events, diags := parse(t, src)
	require.Empty(t, diags)
	assert.Equal(t, []Kind{
		KindBackground, KindBgShow, KindBgMove, KindBgm, KindCharacterShow, KindDialogue,
		KindCharacterShift, KindCharacterMove, KindCharacterHide, KindBgmPause, KindBgmUnpause,
		KindSe, KindScrollStop, KindChoice, KindIfStart, KindFlagSet, KindIfEnd,
		KindEventControl, KindFadeOut, KindFadeIn,
	}, kinds(events))

	show := events[4].(*CharacterShow)
	assert.Equal(t, "aoi", show.Name)
	require.NotNil(t, show.Face.Eye)
	assert.Equal(t, "smile", *show.Face.Eye)
	assert.Nil(t, show.Face.Mouth, "absent attributes stay absent")
	assert.Nil(t, show.Y)
	assert.Nil(t, show.Blink)
	assert.InDelta(t, 0.3, *show.X, 1e-9)

	d := events[5].(*Dialogue)
	assert.Equal(t, "aoi", d.Speaker, "character events set the active speaker")
	assert.Equal(t, "Good morning.", d.Text)
	assert.Equal(t, 7, d.Line())

	mv := events[7].(*CharacterMove)
	assert.Equal(t, 2, *mv.Steps)
	assert.Equal(t, "start", *mv.After)
	assert.Nil(t, mv.Time)

	bgm := events[3].(*Bgm)
	assert.False(t, *bgm.Loop)

	fs := events[15].(*FlagSet)
	assert.Equal(t, flag.Bool(true), fs.Value)

	ec := events[17].(*EventControl)
	assert.Equal(t, []string{"cg_01", "cg_02"}, ec.Unlock)
	assert.Equal(t, []string{"cg_03"}, ec.Lock)

	fo := events[18].(*FadeOut)
	assert.Equal(t, "#FF0000", *fo.Color)
	fi := events[19].(*FadeIn)
	assert.Equal(t, "white", *fi.Color)
	assert.Nil(t, fi.Time)
}

func TestParseDialogueSpansAndStop(t *testing.T) {
	events, diags := parse(t, "【aoi】\n「One.」「Two.」[stop]\n")
	require.Empty(t, diags)
	require.Equal(t, []Kind{KindDialogue, KindDialogue, KindScrollStop}, kinds(events))
	assert.Equal(t, "One.", events[0].(*Dialogue).Text)
	assert.Equal(t, "Two.", events[1].(*Dialogue).Text)
	assert.Equal(t, "aoi", events[1].(*Dialogue).Speaker)
}

func TestParseStopInsideSpan(t *testing.T) {
	events, diags := parse(t, "「Wait[stop]」")
	require.Empty(t, diags)
	require.Equal(t, []Kind{KindDialogue, KindScrollStop}, kinds(events))
	assert.Equal(t, "Wait", events[0].(*Dialogue).Text)
}

func TestParseSpeakerDeclarations(t *testing.T) {
	src := "【aoi】「A」\n【】\n「narration」\n[chara_show name=\"ren\"]\n「B」\n【aoi】\n「C」"
	events, diags := parse(t, src)
	require.Empty(t, diags)
	var speakers []string
	for _, e := range events {
		if d, ok := e.(*Dialogue); ok {
			speakers = append(speakers, d.Speaker)
		}
	}
	assert.Equal(t, []string{"aoi", "", "ren", "aoi"}, speakers)
}

func TestParseSpeakerExpression(t *testing.T) {
	events, diags := parse(t, "【aoi eye=\"smile\" cheek=\"blush\"】「First」「Second」\n「Third」")
	require.Empty(t, diags)
	require.Len(t, events, 3)
	first := events[0].(*Dialogue)
	require.NotNil(t, first.Face.Eye)
	assert.Equal(t, "smile", *first.Face.Eye)
	assert.Equal(t, "blush", *first.Face.Cheek)
	assert.Nil(t, first.Face.Mouth)
	assert.True(t, events[1].(*Dialogue).Face.Empty(), "face applies to the first span only")
	assert.True(t, events[2].(*Dialogue).Face.Empty())

	_, diags = parse(t, "【aoi pose=\"x\"】")
	require.Len(t, diags, 1)
}

func TestParseFullWidthTagSyntax(t *testing.T) {
	events, diags := parse(t, "［bg　file＝＂room＂］\n［choice option1=\"はい！\" option2=\"いいえ\"］\n｢half-width quotes｣")
	require.Empty(t, diags)
	require.Equal(t, []Kind{KindBackground, KindChoice, KindDialogue}, kinds(events))
	assert.Equal(t, "room", events[0].(*Background).File)
	assert.Equal(t, []string{"はい！", "いいえ"}, events[1].(*Choice).Options, "quoted values keep their width")
	assert.Equal(t, "half-width quotes", events[2].(*Dialogue).Text)
}

func TestParseDialogueTextUntouched(t *testing.T) {
	events, _ := parse(t, "「ＡＢＣ！」")
	require.Len(t, events, 1)
	assert.Equal(t, "ＡＢＣ！", events[0].(*Dialogue).Text)
}

func TestParseNFC(t *testing.T) {
	// "か" + combining dakuten composes to "が"
	events, _ := parse(t, "「\u304b\u3099」")
	require.Len(t, events, 1)
	assert.Equal(t, "\u304c", events[0].(*Dialogue).Text)
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"unknown tag", `[teleport map="1"]`},
		{"missing required", `[bg_show time="1"]`},
		{"missing name", `[chara_show eye="smile"]`},
		{"shift without slots", `[chara_shift name="aoi"]`},
		{"move without position", `[chara_move name="aoi" time="1"]`},
		{"x out of range", `[chara_show name="aoi" x="1.5"]`},
		{"y negative", `[bg_move y="-0.1"]`},
		{"bad number", `[bg_show file="a" time="soon"]`},
		{"bad bool", `[bgm file="a" loop="maybe"]`},
		{"volume too loud", `[se file="a" volume="2"]`},
		{"repeat zero", `[se file="a" repeat="0"]`},
		{"bad after", `[chara_move name="aoi" x="0" after="later"]`},
		{"one option", `[choice option1="only"]`},
		{"empty option", `[choice option1="a" option2=""]`},
		{"bad condition", `[if condition="seen"]`},
		{"missing condition", `[if]`},
		{"flag without value", `[flag name="a"]`},
		{"bad flag name", `[flag name="1a" value="1"]`},
		{"empty event", `[event]`},
		{"bad color", `[fadeout color="#12"]`},
		{"unclosed quote", `[bg file="room]`},
		{"unclosed tag", `[bg file="room"`},
		{"duplicate attr", `[bg file="a" file="b"]`},
		{"trailing text", `[bg file="a"] hello`},
		{"unclosed dialogue", `「never ends`},
		{"empty dialogue", `「」`},
		{"stray text", `「a」 and more`},
		{"unclosed speaker", `【aoi`},
		{"plain text", `just some words`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, diags := parse(t, "[bg file=\"ok\"]\n"+tt.line+"\n「after」")
			require.Len(t, diags, 1, "expected one diagnostic")
			assert.Equal(t, 2, diags[0].Line)
			assert.NotEmpty(t, diags[0].Reason)
			// parsing continues past the bad line
			assert.Equal(t, []Kind{KindBackground, KindDialogue}, kinds(events))
		})
	}
}

func TestParseCommentsAndBlankLines(t *testing.T) {
	events, diags := parse(t, "\r\n// comment\n; another\n   \n「x」\r\n")
	assert.Empty(t, diags)
	assert.Len(t, events, 1)
}

func TestParseChoiceGaps(t *testing.T) {
	events, diags := parse(t, `[choice option3="c" option1="a"]`)
	require.Empty(t, diags)
	assert.Equal(t, []string{"a", "c"}, events[0].(*Choice).Options)
}

func TestParseUnquotedAttributes(t *testing.T) {
	events, diags := parse(t, `[chara_hide name=aoi fade=0.1]`)
	require.Empty(t, diags)
	hide := events[0].(*CharacterHide)
	assert.Equal(t, "aoi", hide.Name)
	assert.InDelta(t, 0.1, *hide.Fade, 1e-9)
}

func TestParseDeterministic(t *testing.T) {
	src := "[bg file=\"a\"]\n【aoi】「x」「y」[stop]\n[choice option1=\"1\" option2=\"2\"]"
	a, _ := parse(t, src)
	b, _ := parse(t, src)
	assert.Equal(t, a, b)
}
