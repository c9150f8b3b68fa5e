// Package normalize resolves the stateful parts of a script (current
// background, current music, each character's last expression and
// position) into self-contained records.
package normalize

import (
	"github.com/kasuganosora/scenarioplayer/game/condition"
	"github.com/kasuganosora/scenarioplayer/game/flag"
)

// Expression is a fully resolved expression set.
type Expression struct {
	Eye   string `json:"eye"`
	Mouth string `json:"mouth"`
	Brow  string `json:"brow"`
	Cheek string `json:"cheek"`
}

// IsZero reports whether no slot is resolved (narrator, unknown speaker).
func (e Expression) IsZero() bool { return e == Expression{} }

// Audio is the carried music context.
type Audio struct {
	File   string  `json:"file"`
	Volume float64 `json:"volume"`
	Loop   bool    `json:"loop"`
}

// Position is a normalized stage position.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is one normalized line: either dialogue (Directive == nil) or a
// directive. Background and Audio are the context in effect when the record
// was produced.
type Record struct {
	Index      int
	Line       int
	Background string
	// Character is the speaker id for dialogue, or the target of a
	// character directive.
	Character  string
	Expression Expression
	Audio      Audio
	// Speaker is the resolved display name of Character for dialogue.
	Speaker        string
	ScrollContinue bool
	Text           string
	Directive      Directive
}

// IsDialogue reports whether the record carries text.
func (r Record) IsDialogue() bool { return r.Directive == nil }

// DirectiveKind names a directive variant.
type DirectiveKind string

const (
	DirSetBackground  DirectiveKind = "set_background"
	DirShowBackground DirectiveKind = "show_background"
	DirMoveBackground DirectiveKind = "move_background"
	DirEnterCharacter DirectiveKind = "enter_character"
	DirShiftCharacter DirectiveKind = "shift_character"
	DirMoveCharacter  DirectiveKind = "move_character"
	DirExitCharacter  DirectiveKind = "exit_character"
	DirPlayBgm        DirectiveKind = "play_bgm"
	DirPauseBgm       DirectiveKind = "pause_bgm"
	DirResumeBgm      DirectiveKind = "resume_bgm"
	DirPlaySe         DirectiveKind = "play_se"
	DirFadeOut        DirectiveKind = "fade_out"
	DirFadeIn         DirectiveKind = "fade_in"
	DirChoice         DirectiveKind = "choice"
	DirScrollStop     DirectiveKind = "scroll_stop"
	DirEventControl   DirectiveKind = "event_control"
	DirSetFlag        DirectiveKind = "set_flag"
	DirIfStart        DirectiveKind = "if_start"
	DirIfEnd          DirectiveKind = "if_end"
)

// Directive is the non-text payload of a record.
type Directive interface {
	DirectiveKind() DirectiveKind
}

// SetBackground switches the background without a transition. Only emitted
// inside conditional blocks; elsewhere the change rides on Record.Background.
type SetBackground struct {
	File string
}

// ShowBackground cross-fades to a background.
type ShowBackground struct {
	File string
	Time float64
}

// MoveBackground pans the background from From to To.
type MoveBackground struct {
	From, To Position
	Time     float64
}

// EnterCharacter brings a character on stage with Record.Expression.
type EnterCharacter struct {
	Name  string
	At    Position
	Size  float64
	Blink bool
	Fade  float64
}

// ShiftCharacter changes a character to Record.Expression.
type ShiftCharacter struct {
	Name string
}

// MoveCharacter tweens a character from From to To.
type MoveCharacter struct {
	Name     string
	From, To Position
	Time     float64
	Steps    int
	After    string // start | keep | end_step
}

// ExitCharacter removes a character.
type ExitCharacter struct {
	Name string
	Fade float64
}

// PlayBgm switches music. Like SetBackground, only emitted inside
// conditional blocks.
type PlayBgm struct {
	Audio Audio
}

// PauseBgm fades music out and pauses it.
type PauseBgm struct {
	Fade float64
}

// ResumeBgm resumes paused music.
type ResumeBgm struct {
	Fade float64
}

// PlaySe plays a sound effect.
type PlaySe struct {
	File   string
	Volume float64
	Repeat int
}

// FadeOut fades the screen to Color.
type FadeOut struct {
	Color string
	Time  float64
}

// FadeIn fades the screen in from Color.
type FadeIn struct {
	Color string
	Time  float64
}

// Choice presents options.
type Choice struct {
	Options []string
}

// ScrollStop ends a scrolling run.
type ScrollStop struct{}

// EventControl unlocks and locks events.
type EventControl struct {
	Unlock []string
	Lock   []string
}

// SetFlag assigns a story flag.
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

func (SetBackground) DirectiveKind() DirectiveKind  { return DirSetBackground }
func (ShowBackground) DirectiveKind() DirectiveKind { return DirShowBackground }
func (MoveBackground) DirectiveKind() DirectiveKind { return DirMoveBackground }
func (EnterCharacter) DirectiveKind() DirectiveKind { return DirEnterCharacter }
func (ShiftCharacter) DirectiveKind() DirectiveKind { return DirShiftCharacter }
func (MoveCharacter) DirectiveKind() DirectiveKind  { return DirMoveCharacter }
func (ExitCharacter) DirectiveKind() DirectiveKind  { return DirExitCharacter }
func (PlayBgm) DirectiveKind() DirectiveKind        { return DirPlayBgm }
func (PauseBgm) DirectiveKind() DirectiveKind       { return DirPauseBgm }
func (ResumeBgm) DirectiveKind() DirectiveKind      { return DirResumeBgm }
func (PlaySe) DirectiveKind() DirectiveKind         { return DirPlaySe }
func (FadeOut) DirectiveKind() DirectiveKind        { return DirFadeOut }
func (FadeIn) DirectiveKind() DirectiveKind         { return DirFadeIn }
func (Choice) DirectiveKind() DirectiveKind         { return DirChoice }
func (ScrollStop) DirectiveKind() DirectiveKind     { return DirScrollStop }
func (EventControl) DirectiveKind() DirectiveKind   { return DirEventControl }
func (SetFlag) DirectiveKind() DirectiveKind        { return DirSetFlag }
func (IfStart) DirectiveKind() DirectiveKind        { return DirIfStart }
func (IfEnd) DirectiveKind() DirectiveKind          { return DirIfEnd }

// IsControl reports whether d is a non-visual control directive.
func IsControl(d Directive) bool {
	switch d.(type) {
	case IfStart, IfEnd, SetFlag, EventControl:
		return true
	}
	return false
}
