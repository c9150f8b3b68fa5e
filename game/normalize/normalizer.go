package normalize

import (
	"github.com/kasuganosora/scenarioplayer/game/script"
	"go.uber.org/zap"
)

// Defaults applied to attributes a tag left out.
const (
	DefaultBgTime     = 1.0
	DefaultShowX      = 0.5
	DefaultShowY      = 1.0
	DefaultSize       = 1.0
	DefaultBlink      = true
	DefaultFade       = 0.3
	DefaultMoveTime   = 1.0
	DefaultAfter      = "keep"
	DefaultVolume     = 1.0
	DefaultLoop       = true
	DefaultBgmFade    = 1.0
	DefaultSeRepeat   = 1
	DefaultFadeColor  = "black"
	DefaultFadeTime   = 1.0
	DefaultBgX        = 0.5
	DefaultBgY        = 0.5
	DefaultFallback   = "……"
	defaultSlotNormal = "normal"
	defaultSlotNone   = "none"
)

// DefaultExpression is the expression of a character never given one.
var DefaultExpression = Expression{
	Eye:   defaultSlotNormal,
	Mouth: defaultSlotNormal,
	Brow:  defaultSlotNormal,
	Cheek: defaultSlotNone,
}

// Names resolves speaker ids to display names.
type Names interface {
	DisplayName(id string) string
}

// Normalizer converts events into records.
type Normalizer struct {
	names    Names
	fallback string
	logger   *zap.Logger
}

// New creates a Normalizer. names may be nil (ids display verbatim); an
// empty fallback uses DefaultFallback.
func New(names Names, fallback string, logger *zap.Logger) *Normalizer {
	if fallback == "" {
		fallback = DefaultFallback
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{names: names, fallback: fallback, logger: logger}
}

// carry is the state carried forward through one Normalize call.
type carry struct {
	background string
	bgPos      Position
	audio      Audio
	faces      map[string]Expression
	positions  map[string]Position
	depth      int // open [if] blocks
	records    []Record
}

// Normalize performs one forward pass over events. The result is never
// empty: a script with nothing to play yields a single fallback line.
func (n *Normalizer) Normalize(events []script.Event) []Record {
	c := &carry{
		bgPos:     Position{X: DefaultBgX, Y: DefaultBgY},
		faces:     make(map[string]Expression),
		positions: make(map[string]Position),
	}
	for _, ev := range events {
		n.apply(c, ev)
	}
	if len(c.records) == 0 {
		n.logger.Warn("script produced no records, using fallback line", zap.Int("events", len(events)))
		c.emit(0, Record{Text: n.fallback})
	}
	return c.records
}

func (c *carry) emit(line int, r Record) {
	r.Index = len(c.records)
	r.Line = line
	r.Background = c.background
	r.Audio = c.audio
	c.records = append(c.records, r)
}

func (c *carry) directive(line int, d Directive) {
	c.emit(line, Record{Directive: d})
}

func (c *carry) characterDirective(line int, name string, d Directive) {
	c.emit(line, Record{Character: name, Expression: c.faces[name], Directive: d})
}

// applyFace overwrites only the slots present in f.
func (c *carry) applyFace(name string, f script.Face) Expression {
	e, ok := c.faces[name]
	if !ok {
		e = DefaultExpression
	}
	if f.Eye != nil {
		e.Eye = *f.Eye
	}
	if f.Mouth != nil {
		e.Mouth = *f.Mouth
	}
	if f.Brow != nil {
		e.Brow = *f.Brow
	}
	if f.Cheek != nil {
		e.Cheek = *f.Cheek
	}
	c.faces[name] = e
	return e
}

// scrollContinue looks back for the nearest dialogue or scroll stop.
func (c *carry) scrollContinue() bool {
	for i := len(c.records) - 1; i >= 0; i-- {
		r := c.records[i]
		if r.IsDialogue() {
			return true
		}
		if _, ok := r.Directive.(ScrollStop); ok {
			return false
		}
	}
	return false
}

func (n *Normalizer) displayName(id string) string {
	if id == "" || n.names == nil {
		return id
	}
	return n.names.DisplayName(id)
}

func orFloat(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func orInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func orBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func orString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func (n *Normalizer) apply(c *carry, ev script.Event) {
	line := ev.Line()
	switch e := ev.(type) {
	case *script.Background:
		c.background = e.File
		if c.depth > 0 {
			c.directive(line, SetBackground{File: e.File})
		}

	case *script.BgShow:
		c.background = e.File
		c.directive(line, ShowBackground{File: e.File, Time: orFloat(e.Time, DefaultBgTime)})

	case *script.BgMove:
		to := Position{X: orFloat(e.X, c.bgPos.X), Y: orFloat(e.Y, c.bgPos.Y)}
		c.directive(line, MoveBackground{From: c.bgPos, To: to, Time: orFloat(e.Time, DefaultBgTime)})
		c.bgPos = to

	case *script.CharacterShow:
		c.applyFace(e.Name, e.Face)
		at := Position{X: orFloat(e.X, DefaultShowX), Y: orFloat(e.Y, DefaultShowY)}
		c.positions[e.Name] = at
		c.characterDirective(line, e.Name, EnterCharacter{
			Name:  e.Name,
			At:    at,
			Size:  orFloat(e.Size, DefaultSize),
			Blink: orBool(e.Blink, DefaultBlink),
			Fade:  orFloat(e.Fade, DefaultFade),
		})

	case *script.CharacterShift:
		c.applyFace(e.Name, e.Face)
		c.characterDirective(line, e.Name, ShiftCharacter{Name: e.Name})

	case *script.CharacterMove:
		from, ok := c.positions[e.Name]
		if !ok {
			from = Position{X: DefaultShowX, Y: DefaultShowY}
		}
		to := Position{X: orFloat(e.X, from.X), Y: orFloat(e.Y, from.Y)}
		c.positions[e.Name] = to
		c.characterDirective(line, e.Name, MoveCharacter{
			Name:  e.Name,
			From:  from,
			To:    to,
			Time:  orFloat(e.Time, DefaultMoveTime),
			Steps: orInt(e.Steps, 0),
			After: orString(e.After, DefaultAfter),
		})

	case *script.CharacterHide:
		delete(c.positions, e.Name)
		c.characterDirective(line, e.Name, ExitCharacter{Name: e.Name, Fade: orFloat(e.Fade, DefaultFade)})

	case *script.Bgm:
		c.audio = Audio{File: e.File, Volume: orFloat(e.Volume, DefaultVolume), Loop: orBool(e.Loop, DefaultLoop)}
		if c.depth > 0 {
			c.directive(line, PlayBgm{Audio: c.audio})
		}

	case *script.BgmPause:
		c.directive(line, PauseBgm{Fade: orFloat(e.Fade, DefaultBgmFade)})

	case *script.BgmUnpause:
		c.directive(line, ResumeBgm{Fade: orFloat(e.Fade, DefaultBgmFade)})

	case *script.Se:
		c.directive(line, PlaySe{File: e.File, Volume: orFloat(e.Volume, DefaultVolume), Repeat: orInt(e.Repeat, DefaultSeRepeat)})

	case *script.FadeOut:
		c.directive(line, FadeOut{Color: orString(e.Color, DefaultFadeColor), Time: orFloat(e.Time, DefaultFadeTime)})

	case *script.FadeIn:
		c.directive(line, FadeIn{Color: orString(e.Color, DefaultFadeColor), Time: orFloat(e.Time, DefaultFadeTime)})

	case *script.Dialogue:
		var expr Expression
		if e.Speaker != "" {
			if !e.Face.Empty() {
				c.applyFace(e.Speaker, e.Face)
			}
			expr = c.faces[e.Speaker]
		}
		cont := c.scrollContinue()
		c.emit(line, Record{
			Character:      e.Speaker,
			Expression:     expr,
			Speaker:        n.displayName(e.Speaker),
			ScrollContinue: cont,
			Text:           e.Text,
		})

	case *script.Choice:
		c.directive(line, Choice{Options: append([]string(nil), e.Options...)})

	case *script.ScrollStop:
		c.directive(line, ScrollStop{})

	case *script.EventControl:
		c.directive(line, EventControl{
			Unlock: append([]string(nil), e.Unlock...),
			Lock:   append([]string(nil), e.Lock...),
		})

	case *script.FlagSet:
		c.directive(line, SetFlag{Name: e.Name, Value: e.Value})

	case *script.IfStart:
		c.depth++
		c.directive(line, IfStart{Condition: e.Condition})

	case *script.IfEnd:
		if c.depth > 0 {
			c.depth--
		}
		c.directive(line, IfEnd{})

	default:
		n.logger.Warn("normalize: unhandled event", zap.Stringer("kind", ev.Kind()), zap.Int("line", line))
	}
}
