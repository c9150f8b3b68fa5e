// Package ir groups normalized records into steps: at most one text payload
// plus an ordered list of typed actions, each with an advance policy.
package ir

import (
	"github.com/kasuganosora/scenarioplayer/game/condition"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
)

// Policy says what an outstanding animation means for advancing.
type Policy string

const (
	// Block: the step is not done until the animation completes.
	Block Policy = "block"
	// Complete: advancing is allowed while the animation runs out.
	Complete Policy = "complete"
	// Interrupt: advancing snaps the animation to its end state.
	Interrupt Policy = "interrupt"
	// Continue: the visual state is held for Steps further advances, then
	// After decides what happens to it.
	Continue Policy = "continue"
)

// After policies for Continue animations.
const (
	AfterStart   = "start"
	AfterKeep    = "keep"
	AfterEndStep = "end_step"
)

// ShiftDuration is the cross-fade time of an expression change, in seconds.
const ShiftDuration = 0.2

// Animation describes how an action plays out over time.
type Animation struct {
	Type      string  `json:"type"`
	OnAdvance Policy  `json:"on_advance"`
	Duration  float64 `json:"duration"`
	Steps     int     `json:"steps,omitempty"`
	After     string  `json:"after,omitempty"`
}

// ActionKind names an action variant.
type ActionKind string

const (
	KindSetBackground  ActionKind = "set_background"
	KindShowBackground ActionKind = "show_background"
	KindMoveBackground ActionKind = "move_background"
	KindEnterCharacter ActionKind = "enter_character"
	KindShiftCharacter ActionKind = "shift_character"
	KindMoveCharacter  ActionKind = "move_character"
	KindExitCharacter  ActionKind = "exit_character"
	KindPlayBgm        ActionKind = "play_bgm"
	KindPauseBgm       ActionKind = "pause_bgm"
	KindResumeBgm      ActionKind = "resume_bgm"
	KindPlaySe         ActionKind = "play_se"
	KindFadeOut        ActionKind = "fade_out"
	KindFadeIn         ActionKind = "fade_in"
	KindPresentChoice  ActionKind = "present_choice"
	KindStopScroll     ActionKind = "stop_scroll"
	KindControlEvents  ActionKind = "control_events"
	KindSetFlag        ActionKind = "set_flag"
	KindIfStart        ActionKind = "if_start"
	KindIfEnd          ActionKind = "if_end"
)

// Well-known targets.
const (
	TargetBackground = "background"
	TargetBgm        = "bgm"
	TargetScreen     = "screen"
)

// Action is one side effect of a step.
type Action interface {
	Kind() ActionKind
	// Target is the stage object the action affects, "" for none.
	Target() string
	// Animation is nil for instantaneous actions.
	Animation() *Animation
	Params() map[string]any
}

// SetBackground swaps the background instantly.
type SetBackground struct {
	File string
}

// ShowBackground cross-fades to a new background.
type ShowBackground struct {
	File string
	Time float64
}

// MoveBackground pans the background.
type MoveBackground struct {
	From, To normalize.Position
	Time     float64
}

// EnterCharacter brings a character on stage.
type EnterCharacter struct {
	Name       string
	Expression normalize.Expression
	At         normalize.Position
	Size       float64
	Blink      bool
	Fade       float64
}

// ShiftCharacter changes a character's expression. Synthesized is set when
// the change was implied by a dialogue line rather than written as a tag.
type ShiftCharacter struct {
	Name        string
	Expression  normalize.Expression
	Synthesized bool
}

// MoveCharacter tweens a character between two positions.
type MoveCharacter struct {
	Name     string
	From, To normalize.Position
	Time     float64
	Steps    int
	After    string
}

// ExitCharacter fades a character out.
type ExitCharacter struct {
	Name string
	Fade float64
}

// PlayBgm starts a music track.
type PlayBgm struct {
	Audio normalize.Audio
}

// PauseBgm fades the music out and pauses it.
type PauseBgm struct {
	Fade float64
}

// ResumeBgm fades paused music back in.
type ResumeBgm struct {
	Fade float64
}

// PlaySe plays a one-shot sound effect.
type PlaySe struct {
	File   string
	Volume float64
	Repeat int
}

// FadeOut fades the screen to a colour.
type FadeOut struct {
	Color string
	Time  float64
}

// FadeIn fades the screen in from a colour.
type FadeIn struct {
	Color string
	Time  float64
}

// PresentChoice opens a choice and waits for a selection.
type PresentChoice struct {
	Options []string
}

// StopScroll ends the current scrolling run.
type StopScroll struct{}

// ControlEvents unlocks and locks story events.
type ControlEvents struct {
	Unlock []string
	Lock   []string
}

// SetFlag writes a story flag.
type SetFlag struct {
	Name  string
	Value flag.Value
}

// IfStart opens a conditional block.
type IfStart struct {
	Condition condition.Expr
}

// IfEnd closes a conditional block.
type IfEnd struct{}

func (SetBackground) Kind() ActionKind  { return KindSetBackground }
func (ShowBackground) Kind() ActionKind { return KindShowBackground }
func (MoveBackground) Kind() ActionKind { return KindMoveBackground }
func (EnterCharacter) Kind() ActionKind { return KindEnterCharacter }
func (ShiftCharacter) Kind() ActionKind { return KindShiftCharacter }
func (MoveCharacter) Kind() ActionKind  { return KindMoveCharacter }
func (ExitCharacter) Kind() ActionKind  { return KindExitCharacter }
func (PlayBgm) Kind() ActionKind        { return KindPlayBgm }
func (PauseBgm) Kind() ActionKind       { return KindPauseBgm }
func (ResumeBgm) Kind() ActionKind      { return KindResumeBgm }
func (PlaySe) Kind() ActionKind         { return KindPlaySe }
func (FadeOut) Kind() ActionKind        { return KindFadeOut }
func (FadeIn) Kind() ActionKind         { return KindFadeIn }
func (PresentChoice) Kind() ActionKind  { return KindPresentChoice }
func (StopScroll) Kind() ActionKind     { return KindStopScroll }
func (ControlEvents) Kind() ActionKind  { return KindControlEvents }
func (SetFlag) Kind() ActionKind        { return KindSetFlag }
func (IfStart) Kind() ActionKind        { return KindIfStart }
func (IfEnd) Kind() ActionKind          { return KindIfEnd }

func (SetBackground) Target() string    { return TargetBackground }
func (ShowBackground) Target() string   { return TargetBackground }
func (MoveBackground) Target() string   { return TargetBackground }
func (a EnterCharacter) Target() string { return a.Name }
func (a ShiftCharacter) Target() string { return a.Name }
func (a MoveCharacter) Target() string  { return a.Name }
func (a ExitCharacter) Target() string  { return a.Name }
func (PlayBgm) Target() string          { return TargetBgm }
func (PauseBgm) Target() string         { return TargetBgm }
func (ResumeBgm) Target() string        { return TargetBgm }
func (a PlaySe) Target() string         { return a.File }
func (FadeOut) Target() string          { return TargetScreen }
func (FadeIn) Target() string           { return TargetScreen }
func (PresentChoice) Target() string    { return "" }
func (StopScroll) Target() string       { return "" }
func (ControlEvents) Target() string    { return "" }
func (a SetFlag) Target() string        { return a.Name }
func (IfStart) Target() string          { return "" }
func (IfEnd) Target() string            { return "" }

func (SetBackground) Animation() *Animation { return nil }
func (a ShowBackground) Animation() *Animation {
	return &Animation{Type: "crossfade", OnAdvance: Block, Duration: a.Time}
}
func (a MoveBackground) Animation() *Animation {
	return &Animation{Type: "pan", OnAdvance: Complete, Duration: a.Time}
}
func (a EnterCharacter) Animation() *Animation {
	return &Animation{Type: "fade_in", OnAdvance: Block, Duration: a.Fade}
}
func (ShiftCharacter) Animation() *Animation {
	return &Animation{Type: "expression", OnAdvance: Block, Duration: ShiftDuration}
}
func (a MoveCharacter) Animation() *Animation {
	if a.Steps > 0 {
		return &Animation{Type: "move", OnAdvance: Continue, Duration: a.Time, Steps: a.Steps, After: a.After}
	}
	return &Animation{Type: "move", OnAdvance: Complete, Duration: a.Time}
}
func (a ExitCharacter) Animation() *Animation {
	return &Animation{Type: "fade_out", OnAdvance: Block, Duration: a.Fade}
}
func (PlayBgm) Animation() *Animation { return nil }
func (a PauseBgm) Animation() *Animation {
	return &Animation{Type: "volume_fade", OnAdvance: Interrupt, Duration: a.Fade}
}
func (a ResumeBgm) Animation() *Animation {
	return &Animation{Type: "volume_fade", OnAdvance: Interrupt, Duration: a.Fade}
}
func (PlaySe) Animation() *Animation { return nil }
func (a FadeOut) Animation() *Animation {
	return &Animation{Type: "screen_fade", OnAdvance: Complete, Duration: a.Time}
}
func (a FadeIn) Animation() *Animation {
	return &Animation{Type: "screen_fade", OnAdvance: Complete, Duration: a.Time}
}
func (PresentChoice) Animation() *Animation { return nil }
func (StopScroll) Animation() *Animation    { return nil }
func (ControlEvents) Animation() *Animation { return nil }
func (SetFlag) Animation() *Animation       { return nil }
func (IfStart) Animation() *Animation       { return nil }
func (IfEnd) Animation() *Animation         { return nil }

func (a SetBackground) Params() map[string]any { return map[string]any{"file": a.File} }
func (a ShowBackground) Params() map[string]any {
	return map[string]any{"file": a.File, "time": a.Time}
}
func (a MoveBackground) Params() map[string]any {
	return map[string]any{"from": a.From, "to": a.To, "time": a.Time}
}
func (a EnterCharacter) Params() map[string]any {
	return map[string]any{
		"expression": a.Expression,
		"at":         a.At,
		"size":       a.Size,
		"blink":      a.Blink,
		"fade":       a.Fade,
	}
}
func (a ShiftCharacter) Params() map[string]any {
	p := map[string]any{"expression": a.Expression}
	if a.Synthesized {
		p["synthesized"] = true
	}
	return p
}
func (a MoveCharacter) Params() map[string]any {
	return map[string]any{"from": a.From, "to": a.To, "time": a.Time}
}
func (a ExitCharacter) Params() map[string]any { return map[string]any{"fade": a.Fade} }
func (a PlayBgm) Params() map[string]any {
	return map[string]any{"file": a.Audio.File, "volume": a.Audio.Volume, "loop": a.Audio.Loop}
}
func (a PauseBgm) Params() map[string]any  { return map[string]any{"fade": a.Fade} }
func (a ResumeBgm) Params() map[string]any { return map[string]any{"fade": a.Fade} }
func (a PlaySe) Params() map[string]any {
	return map[string]any{"volume": a.Volume, "repeat": a.Repeat}
}
func (a FadeOut) Params() map[string]any {
	return map[string]any{"color": a.Color, "time": a.Time}
}
func (a FadeIn) Params() map[string]any {
	return map[string]any{"color": a.Color, "time": a.Time}
}
func (a PresentChoice) Params() map[string]any { return map[string]any{"options": a.Options} }
func (StopScroll) Params() map[string]any      { return nil }
func (a ControlEvents) Params() map[string]any {
	p := map[string]any{}
	if len(a.Unlock) > 0 {
		p["unlock"] = a.Unlock
	}
	if len(a.Lock) > 0 {
		p["lock"] = a.Lock
	}
	return p
}
func (a SetFlag) Params() map[string]any { return map[string]any{"value": a.Value} }
func (a IfStart) Params() map[string]any {
	return map[string]any{"condition": a.Condition.String()}
}
func (IfEnd) Params() map[string]any { return nil }

// IsControl reports whether a is a synchronous, non-visual control action.
func IsControl(a Action) bool {
	switch a.(type) {
	case IfStart, IfEnd, SetFlag, ControlEvents:
		return true
	}
	return false
}

// PolicyOf returns the advance policy of a, "" when it has no animation.
func PolicyOf(a Action) Policy {
	if an := a.Animation(); an != nil {
		return an.OnAdvance
	}
	return ""
}
