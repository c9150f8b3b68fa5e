package ir

import (
	"github.com/kasuganosora/scenarioplayer/game/normalize"
)

// Text is the dialogue payload of a step.
type Text struct {
	SpeakerID string
	Speaker   string
	Body      string
	// Scroll is set when the line continues the previous one's scrolling run.
	Scroll bool
}

// Step is one unit of playback.
type Step struct {
	ID          int
	Text        *Text
	Actions     []Action
	SourceIndex []int
}

// HasText reports whether the step presents dialogue.
func (s *Step) HasText() bool { return s.Text != nil }

// Blocking reports whether any action holds the step until it finishes.
func (s *Step) Blocking() bool {
	for _, a := range s.Actions {
		if PolicyOf(a) == Block {
			return true
		}
	}
	return false
}

// Control returns the control action of a single-action control step.
func (s *Step) Control() (Action, bool) {
	if s.Text != nil || len(s.Actions) != 1 || !IsControl(s.Actions[0]) {
		return nil, false
	}
	return s.Actions[0], true
}

// Choice returns the choice of a choice step.
func (s *Step) Choice() (PresentChoice, bool) {
	for _, a := range s.Actions {
		if c, ok := a.(PresentChoice); ok {
			return c, true
		}
	}
	return PresentChoice{}, false
}

// Program is the built, immutable step list of one script.
type Program struct {
	Steps []*Step
	// SourceIndex maps a step id to the record indexes it was built from.
	SourceIndex map[int][]int
}

// Len returns the number of steps.
func (p *Program) Len() int { return len(p.Steps) }

// builder tracks what has been presented so far so that context changes
// carried silently by records become explicit actions.
type builder struct {
	prog       *Program
	pending    []Action
	pendingSrc []int
	lastBg     string
	lastAudio  normalize.Audio
	lastExpr   map[string]normalize.Expression
}

// Build turns records into a Program. The same records always produce the
// same program.
func Build(records []normalize.Record) *Program {
	b := &builder{
		prog:     &Program{SourceIndex: make(map[int][]int)},
		lastExpr: make(map[string]normalize.Expression),
	}
	for _, r := range records {
		b.add(r)
	}
	b.flush()
	return b.prog
}

func (b *builder) add(r normalize.Record) {
	if r.IsDialogue() {
		b.sync(r)
		if last, ok := b.lastExpr[r.Character]; ok && r.Character != "" && !r.Expression.IsZero() && last != r.Expression {
			b.queue(r.Index, ShiftCharacter{Name: r.Character, Expression: r.Expression, Synthesized: true})
			b.lastExpr[r.Character] = r.Expression
		}
		b.emit(&Text{
			SpeakerID: r.Character,
			Speaker:   r.Speaker,
			Body:      r.Text,
			Scroll:    r.ScrollContinue,
		}, nil, r.Index)
		return
	}

	switch d := r.Directive.(type) {
	case normalize.Choice:
		b.boundary(r, PresentChoice{Options: d.Options})
	case normalize.ScrollStop:
		b.boundary(r, StopScroll{})
	case normalize.IfStart:
		b.boundary(r, IfStart{Condition: d.Condition})
	case normalize.IfEnd:
		b.boundary(r, IfEnd{})
	case normalize.SetFlag:
		b.boundary(r, SetFlag{Name: d.Name, Value: d.Value})
	case normalize.EventControl:
		b.boundary(r, ControlEvents{Unlock: d.Unlock, Lock: d.Lock})

	case normalize.SetBackground:
		b.lastBg = d.File
		b.sync(r)
		b.queue(r.Index, SetBackground{File: d.File})
	case normalize.ShowBackground:
		b.lastBg = d.File
		b.sync(r)
		b.queue(r.Index, ShowBackground{File: d.File, Time: d.Time})
	case normalize.PlayBgm:
		b.lastAudio = d.Audio
		b.sync(r)
		b.queue(r.Index, PlayBgm{Audio: d.Audio})

	case normalize.MoveBackground:
		b.sync(r)
		b.queue(r.Index, MoveBackground{From: d.From, To: d.To, Time: d.Time})
	case normalize.EnterCharacter:
		b.sync(r)
		b.lastExpr[d.Name] = r.Expression
		b.queue(r.Index, EnterCharacter{
			Name:       d.Name,
			Expression: r.Expression,
			At:         d.At,
			Size:       d.Size,
			Blink:      d.Blink,
			Fade:       d.Fade,
		})
	case normalize.ShiftCharacter:
		b.sync(r)
		b.lastExpr[d.Name] = r.Expression
		b.queue(r.Index, ShiftCharacter{Name: d.Name, Expression: r.Expression})
	case normalize.MoveCharacter:
		b.sync(r)
		b.queue(r.Index, MoveCharacter{Name: d.Name, From: d.From, To: d.To, Time: d.Time, Steps: d.Steps, After: d.After})
	case normalize.ExitCharacter:
		b.sync(r)
		delete(b.lastExpr, d.Name)
		b.queue(r.Index, ExitCharacter{Name: d.Name, Fade: d.Fade})
	case normalize.PauseBgm:
		b.sync(r)
		b.queue(r.Index, PauseBgm{Fade: d.Fade})
	case normalize.ResumeBgm:
		b.sync(r)
		b.queue(r.Index, ResumeBgm{Fade: d.Fade})
	case normalize.PlaySe:
		b.sync(r)
		b.queue(r.Index, PlaySe{File: d.File, Volume: d.Volume, Repeat: d.Repeat})
	case normalize.FadeOut:
		b.sync(r)
		b.queue(r.Index, FadeOut{Color: d.Color, Time: d.Time})
	case normalize.FadeIn:
		b.sync(r)
		b.queue(r.Index, FadeIn{Color: d.Color, Time: d.Time})
	}
}

// sync queues actions for background or music changes r carries that have
// not been presented yet.
func (b *builder) sync(r normalize.Record) {
	if r.Background != "" && r.Background != b.lastBg {
		b.lastBg = r.Background
		b.queue(r.Index, SetBackground{File: r.Background})
	}
	if r.Audio.File != "" && r.Audio != b.lastAudio {
		b.lastAudio = r.Audio
		b.queue(r.Index, PlayBgm{Audio: r.Audio})
	}
}

// boundary emits a step of its own for a, after flushing whatever was
// pending.
func (b *builder) boundary(r normalize.Record, a Action) {
	b.sync(r)
	b.flush()
	b.emit(nil, []Action{a}, r.Index)
}

func (b *builder) queue(src int, a Action) {
	b.pending = append(b.pending, a)
	if n := len(b.pendingSrc); n == 0 || b.pendingSrc[n-1] != src {
		b.pendingSrc = append(b.pendingSrc, src)
	}
}

func (b *builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	b.emit(nil, nil, -1)
}

// emit closes a step from the pending buffer plus extra actions. src < 0
// adds no source index of its own.
func (b *builder) emit(text *Text, extra []Action, src int) {
	actions := append(b.pending, extra...)
	sources := b.pendingSrc
	if src >= 0 && (len(sources) == 0 || sources[len(sources)-1] != src) {
		sources = append(sources, src)
	}
	step := &Step{
		ID:          len(b.prog.Steps),
		Text:        text,
		Actions:     actions,
		SourceIndex: sources,
	}
	b.prog.Steps = append(b.prog.Steps, step)
	b.prog.SourceIndex[step.ID] = append([]int(nil), sources...)
	b.pending = nil
	b.pendingSrc = nil
}
