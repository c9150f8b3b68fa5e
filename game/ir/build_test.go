package ir_test

import (
	"testing"

	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"github.com/kasuganosora/scenarioplayer/game/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func build(t *testing.T, src string) *ir.Program {
	t.Helper()
	events, diags := script.NewParser(zap.NewNop()).Parse(src)
	require.Empty(t, diags)
	return ir.Build(normalize.New(nil, "", zap.NewNop()).Normalize(events))
}

func kinds(s *ir.Step) []ir.ActionKind {
	out := make([]ir.ActionKind, 0, len(s.Actions))
	for _, a := range s.Actions {
		out = append(out, a.Kind())
	}
	return out
}

func TestPendingActionsJoinText(t *testing.T) {
	p := build(t, `[bg_show file="room"]
[chara_show name="aoi"]
「hello」`)

	require.Equal(t, 1, p.Len())
	s := p.Steps[0]
	require.True(t, s.HasText())
	assert.Equal(t, "hello", s.Text.Body)
	assert.Equal(t, "aoi", s.Text.SpeakerID)
	assert.Equal(t, []ir.ActionKind{ir.KindShowBackground, ir.KindEnterCharacter}, kinds(s))
	assert.Equal(t, []int{0, 1, 2}, s.SourceIndex)
}

func TestCarriedContextBecomesExplicit(t *testing.T) {
	p := build(t, `[bg file="room"]
[bgm file="theme" volume="0.5"]
「one」
「two」
[bg file="street"]
「three」`)

	require.Equal(t, 3, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindSetBackground, ir.KindPlayBgm}, kinds(p.Steps[0]))
	assert.Equal(t, ir.SetBackground{File: "room"}, p.Steps[0].Actions[0])
	assert.Equal(t, ir.PlayBgm{Audio: normalize.Audio{File: "theme", Volume: 0.5, Loop: true}}, p.Steps[0].Actions[1])
	assert.Empty(t, p.Steps[1].Actions)
	assert.Equal(t, []ir.Action{ir.SetBackground{File: "street"}}, p.Steps[2].Actions)
}

func TestShowBackgroundIsNotSyncedTwice(t *testing.T) {
	p := build(t, `[bg_show file="room"]
「a」
「b」`)
	require.Equal(t, 2, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindShowBackground}, kinds(p.Steps[0]))
	assert.Empty(t, p.Steps[1].Actions)
}

func TestExpressionShiftSynthesized(t *testing.T) {
	p := build(t, `[chara_show name="aoi" eye="smile"]
「a」
【aoi eye="sad"】「b」
「c」`)

	require.Equal(t, 3, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindEnterCharacter}, kinds(p.Steps[0]))

	require.Len(t, p.Steps[1].Actions, 1)
	shift, ok := p.Steps[1].Actions[0].(ir.ShiftCharacter)
	require.True(t, ok)
	assert.True(t, shift.Synthesized)
	assert.Equal(t, "aoi", shift.Name)
	assert.Equal(t, "sad", shift.Expression.Eye)
	assert.Equal(t, "normal", shift.Expression.Mouth)

	assert.Empty(t, p.Steps[2].Actions, "unchanged expression needs no shift")
}

func TestExplicitShiftUpdatesLastExpression(t *testing.T) {
	p := build(t, `[chara_show name="aoi"]
[chara_shift name="aoi" mouth="open"]
「a」`)

	require.Equal(t, 1, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindEnterCharacter, ir.KindShiftCharacter}, kinds(p.Steps[0]))
	assert.False(t, p.Steps[0].Actions[1].(ir.ShiftCharacter).Synthesized)
}

func TestOffStageSpeakerGetsNoShift(t *testing.T) {
	p := build(t, `[chara_show name="aoi"]
[chara_hide name="aoi"]
【aoi eye="smile"】「gone」`)

	require.Equal(t, 1, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindEnterCharacter, ir.KindExitCharacter}, kinds(p.Steps[0]))
}

func TestChoiceAndScrollStopAreBoundaries(t *testing.T) {
	p := build(t, `[se file="door"]
[choice option1="X" option2="Y"]
「a」[stop]`)

	require.Equal(t, 4, p.Len())
	assert.Equal(t, []ir.ActionKind{ir.KindPlaySe}, kinds(p.Steps[0]))
	assert.False(t, p.Steps[0].HasText())

	c, ok := p.Steps[1].Choice()
	require.True(t, ok)
	assert.Equal(t, []string{"X", "Y"}, c.Options)
	assert.Equal(t, []int{1}, p.Steps[1].SourceIndex)

	assert.Equal(t, "a", p.Steps[2].Text.Body)
	assert.Equal(t, []ir.ActionKind{ir.KindStopScroll}, kinds(p.Steps[3]))
}

func TestControlRecordsStandAlone(t *testing.T) {
	p := build(t, `[se file="a"]
[flag name="seen" value="true"]
[se file="b"]
[if condition="seen==true"]
[event unlock="e1"]
[endif]
「x」`)

	var got [][]ir.ActionKind
	for _, s := range p.Steps {
		got = append(got, kinds(s))
	}
	assert.Equal(t, [][]ir.ActionKind{
		{ir.KindPlaySe},
		{ir.KindSetFlag},
		{ir.KindPlaySe},
		{ir.KindIfStart},
		{ir.KindControlEvents},
		{ir.KindIfEnd},
		{},
	}, got)

	for _, i := range []int{1, 3, 4, 5} {
		_, ok := p.Steps[i].Control()
		assert.True(t, ok, "step %d", i)
	}
	for _, i := range []int{0, 2, 6} {
		_, ok := p.Steps[i].Control()
		assert.False(t, ok, "step %d", i)
	}
}

func TestConditionalBackgroundStaysInsideBlock(t *testing.T) {
	p := build(t, `[bg file="room"]
「a」
[if condition="night==true"]
[bg file="dark"]
「b」
[endif]
「c」`)

	var inBlock *ir.Step
	for _, s := range p.Steps {
		if s.HasText() && s.Text.Body == "b" {
			inBlock = s
		}
	}
	require.NotNil(t, inBlock)
	assert.Equal(t, []ir.Action{ir.SetBackground{File: "dark"}}, inBlock.Actions)
}

func TestScrollContinueCarried(t *testing.T) {
	p := build(t, `【aoi】
「A」「A」`)

	require.Equal(t, 2, p.Len())
	assert.False(t, p.Steps[0].Text.Scroll)
	assert.True(t, p.Steps[1].Text.Scroll)
}

func TestPolicies(t *testing.T) {
	cases := []struct {
		action ir.Action
		want   ir.Policy
	}{
		{ir.ShowBackground{File: "a", Time: 1}, ir.Block},
		{ir.EnterCharacter{Name: "a", Fade: 0.3}, ir.Block},
		{ir.ExitCharacter{Name: "a", Fade: 0.3}, ir.Block},
		{ir.ShiftCharacter{Name: "a"}, ir.Block},
		{ir.MoveCharacter{Name: "a", Time: 1}, ir.Complete},
		{ir.MoveCharacter{Name: "a", Time: 1, Steps: 2, After: ir.AfterStart}, ir.Continue},
		{ir.MoveBackground{Time: 1}, ir.Complete},
		{ir.FadeOut{Color: "black", Time: 1}, ir.Complete},
		{ir.FadeIn{Color: "black", Time: 1}, ir.Complete},
		{ir.PauseBgm{Fade: 1}, ir.Interrupt},
		{ir.ResumeBgm{Fade: 1}, ir.Interrupt},
		{ir.SetBackground{File: "a"}, ""},
		{ir.PlayBgm{}, ""},
		{ir.PlaySe{File: "a"}, ""},
		{ir.PresentChoice{}, ""},
		{ir.SetFlag{Name: "a"}, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ir.PolicyOf(tc.action), string(tc.action.Kind()))
	}

	cont := ir.MoveCharacter{Name: "a", Time: 1, Steps: 2, After: ir.AfterEndStep}.Animation()
	assert.Equal(t, 2, cont.Steps)
	assert.Equal(t, ir.AfterEndStep, cont.After)
}

func TestBlockingStep(t *testing.T) {
	p := build(t, `[chara_show name="aoi"]
[se file="x"]
[choice option1="a" option2="b"]
[chara_move name="aoi" x="0.2"]
[choice option1="a" option2="b"]`)

	require.Equal(t, 4, p.Len())
	assert.True(t, p.Steps[0].Blocking())
	assert.False(t, p.Steps[2].Blocking())
}

func TestSourceIndexMap(t *testing.T) {
	p := build(t, `[se file="a"]
「x」
[flag name="f" value="1"]`)

	require.Len(t, p.SourceIndex, p.Len())
	seen := map[int]bool{}
	for _, s := range p.Steps {
		assert.Equal(t, s.SourceIndex, p.SourceIndex[s.ID])
		for _, i := range s.SourceIndex {
			seen[i] = true
		}
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, seen)
}

func TestFallbackProgram(t *testing.T) {
	p := build(t, "// nothing here\n")
	require.Equal(t, 1, p.Len())
	assert.Equal(t, normalize.DefaultFallback, p.Steps[0].Text.Body)
}
