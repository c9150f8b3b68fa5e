// Package script turns scenario markup into a flat, ordered list of typed
// events. The parser never fills in defaults: an attribute missing from a
// tag stays nil on the event.
package script

import (
	"fmt"

	"github.com/kasuganosora/scenarioplayer/game/condition"
	"github.com/kasuganosora/scenarioplayer/game/flag"
)

// Kind identifies an event variant.
type Kind int

const (
	KindBackground Kind = iota
	KindBgShow
	KindBgMove
	KindCharacterShow
	KindCharacterShift
	KindCharacterMove
	KindCharacterHide
	KindBgm
	KindBgmPause
	KindBgmUnpause
	KindSe
	KindDialogue
	KindChoice
	KindScrollStop
	KindEventControl
	KindFlagSet
	KindIfStart
	KindIfEnd
	KindFadeOut
	KindFadeIn
)

var kindNames = [...]string{
	KindBackground:     "Background",
	KindBgShow:         "BgShow",
	KindBgMove:         "BgMove",
	KindCharacterShow:  "CharacterShow",
	KindCharacterShift: "CharacterShift",
	KindCharacterMove:  "CharacterMove",
	KindCharacterHide:  "CharacterHide",
	KindBgm:            "Bgm",
	KindBgmPause:       "BgmPause",
	KindBgmUnpause:     "BgmUnpause",
	KindSe:             "Se",
	KindDialogue:       "Dialogue",
	KindChoice:         "Choice",
	KindScrollStop:     "ScrollStop",
	KindEventControl:   "EventControl",
	KindFlagSet:        "FlagSet",
	KindIfStart:        "IfStart",
	KindIfEnd:          "IfEnd",
	KindFadeOut:        "FadeOut",
	KindFadeIn:         "FadeIn",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Event is one parsed script instruction.
type Event interface {
	Kind() Kind
	// Line is the 1-based source line the event came from.
	Line() int
}

type at struct{ line int }

func (a at) Line() int { return a.line }

// Face holds the expression slots of a character tag. Nil slots were not
// written in the tag.
type Face struct {
	Eye   *string
	Mouth *string
	Brow  *string
	Cheek *string
}

// Empty reports whether no slot is set.
func (f Face) Empty() bool {
	return f.Eye == nil && f.Mouth == nil && f.Brow == nil && f.Cheek == nil
}

// Background sets the carried background without a transition.
type Background struct {
	at
	File string
}

// BgShow shows a background with a cross-fade.
type BgShow struct {
	at
	File string
	Time *float64
}

// BgMove pans the background to a normalized position.
type BgMove struct {
	at
	X, Y *float64
	Time *float64
}

// CharacterShow brings a character on stage.
type CharacterShow struct {
	at
	Name  string
	Face  Face
	X, Y  *float64
	Size  *float64
	Blink *bool
	Fade  *float64
}

// CharacterShift changes a visible character's expression.
type CharacterShift struct {
	at
	Name string
	Face Face
}

// CharacterMove tweens a character to a normalized position. Steps > 0 holds
// the move for that many further advances, then applies After.
type CharacterMove struct {
	at
	Name  string
	X, Y  *float64
	Time  *float64
	Steps *int
	After *string
}

// CharacterHide removes a character from the stage.
type CharacterHide struct {
	at
	Name string
	Fade *float64
}

// Bgm switches the music track.
type Bgm struct {
	at
	File   string
	Volume *float64
	Loop   *bool
}

// BgmPause fades the music out and pauses it.
type BgmPause struct {
	at
	Fade *float64
}

// BgmUnpause resumes paused music.
type BgmUnpause struct {
	at
	Fade *float64
}

// Se plays a one-shot sound effect.
type Se struct {
	at
	File   string
	Volume *float64
	Repeat *int
}

// Dialogue is one quoted span. Speaker is the active speaker id when the
// span was read; empty means narrator. Face carries expression slots written
// on the speaker line (【aoi eye="smile"】); only the first span after that
// line gets them.
type Dialogue struct {
	at
	Speaker string
	Text    string
	Face    Face
}

// Choice presents 2 to 9 options.
type Choice struct {
	at
	Options []string
}

// ScrollStop ends a scrolling run.
type ScrollStop struct{ at }

// EventControl unlocks and locks gallery/story events.
type EventControl struct {
	at
	Unlock []string
	Lock   []string
}

// FlagSet assigns a story flag.
type FlagSet struct {
	at
	Name  string
	Value flag.Value
}

// IfStart opens a conditional block.
type IfStart struct {
	at
	Condition condition.Expr
}

// IfEnd closes the innermost conditional block.
type IfEnd struct{ at }

// FadeOut fades the screen to a color.
type FadeOut struct {
	at
	Color *string
	Time  *float64
}

// FadeIn fades the screen back in from a color.
type FadeIn struct {
	at
	Color *string
	Time  *float64
}

func (Background) Kind() Kind     { return KindBackground }
func (BgShow) Kind() Kind         { return KindBgShow }
func (BgMove) Kind() Kind         { return KindBgMove }
func (CharacterShow) Kind() Kind  { return KindCharacterShow }
func (CharacterShift) Kind() Kind { return KindCharacterShift }
func (CharacterMove) Kind() Kind  { return KindCharacterMove }
func (CharacterHide) Kind() Kind  { return KindCharacterHide }
func (Bgm) Kind() Kind            { return KindBgm }
func (BgmPause) Kind() Kind       { return KindBgmPause }
func (BgmUnpause) Kind() Kind     { return KindBgmUnpause }
func (Se) Kind() Kind             { return KindSe }
func (Dialogue) Kind() Kind       { return KindDialogue }
func (Choice) Kind() Kind         { return KindChoice }
func (ScrollStop) Kind() Kind     { return KindScrollStop }
func (EventControl) Kind() Kind   { return KindEventControl }
func (FlagSet) Kind() Kind        { return KindFlagSet }
func (IfStart) Kind() Kind        { return KindIfStart }
func (IfEnd) Kind() Kind          { return KindIfEnd }
func (FadeOut) Kind() Kind        { return KindFadeOut }
func (FadeIn) Kind() Kind         { return KindFadeIn }

// Character returns the character id an event addresses, if any.
func Character(e Event) (string, bool) {
	switch ev := e.(type) {
	case *CharacterShow:
		return ev.Name, true
	case *CharacterShift:
		return ev.Name, true
	case *CharacterMove:
		return ev.Name, true
	case *CharacterHide:
		return ev.Name, true
	}
	return "", false
}
