package player

import (
	"sort"

	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
)

// CharacterState is one character as the headless stage sees it.
type CharacterState struct {
	Name       string               `json:"name"`
	Expression normalize.Expression `json:"expression"`
	At         normalize.Position   `json:"at"`
	Size       float64              `json:"size"`
	Blink      bool                 `json:"blink"`
}

// StageState is a point-in-time copy of the headless stage.
type StageState struct {
	Background string             `json:"background,omitempty"`
	BgOffset   normalize.Position `json:"bg_offset"`
	Characters []CharacterState   `json:"characters,omitempty"`
	Bgm        string             `json:"bgm,omitempty"`
	BgmPaused  bool               `json:"bgm_paused,omitempty"`
	Fade       string             `json:"fade,omitempty"` // colour while faded out
	LastSe     string             `json:"last_se,omitempty"`
	Animating  int                `json:"animating"`
}

// anim is a timed handle. finish applies the end state exactly once.
type anim struct {
	left   int
	done   bool
	finish func()
}

func (a *anim) Done() bool { return a.done }

func (a *anim) Cancel() {
	if a.done {
		return
	}
	a.done = true
	if a.finish != nil {
		a.finish()
	}
}

// Stage is a headless stage and mixer. It keeps the visible state that a
// renderer would draw and runs animations on the same tick budget as the
// reveal engine, so playback without a renderer still honours block waits.
type Stage struct {
	bg       string
	bgOffset normalize.Position
	chars    map[string]*CharacterState
	bgm      string
	paused   bool
	fade     string
	lastSe   string
	anims    []*anim
}

// NewStage creates an empty stage.
func NewStage() *Stage {
	return &Stage{chars: make(map[string]*CharacterState)}
}

var (
	_ scenario.Stage = (*Stage)(nil)
	_ scenario.Mixer = (*Stage)(nil)
)

func (s *Stage) start(seconds float64, finish func()) scenario.Handle {
	ms := int(seconds * 1000)
	if ms <= 0 {
		if finish != nil {
			finish()
		}
		return scenario.Done()
	}
	a := &anim{left: ms, finish: finish}
	s.anims = append(s.anims, a)
	return a
}

// Tick advances every running animation by ms.
func (s *Stage) Tick(ms int) {
	live := s.anims[:0]
	for _, a := range s.anims {
		if a.done {
			continue
		}
		a.left -= ms
		if a.left <= 0 {
			a.Cancel()
			continue
		}
		live = append(live, a)
	}
	s.anims = live
}

func (s *Stage) SetBackground(file string) { s.bg = file }

func (s *Stage) ShowBackground(file string, d float64) scenario.Handle {
	return s.start(d, func() { s.bg = file })
}

func (s *Stage) MoveBackground(_, to normalize.Position, d float64) scenario.Handle {
	return s.start(d, func() { s.bgOffset = to })
}

func (s *Stage) EnterCharacter(name string, expr normalize.Expression, at normalize.Position, size float64, blink bool, fade float64) scenario.Handle {
	s.chars[name] = &CharacterState{Name: name, Expression: expr, At: at, Size: size, Blink: blink}
	return s.start(fade, nil)
}

func (s *Stage) ShiftCharacter(name string, expr normalize.Expression, d float64) scenario.Handle {
	return s.start(d, func() {
		if c, ok := s.chars[name]; ok {
			c.Expression = expr
		}
	})
}

func (s *Stage) MoveCharacter(name string, _, to normalize.Position, d float64) scenario.Handle {
	return s.start(d, func() {
		if c, ok := s.chars[name]; ok {
			c.At = to
		}
	})
}

func (s *Stage) ExitCharacter(name string, fade float64) scenario.Handle {
	return s.start(fade, func() { delete(s.chars, name) })
}

func (s *Stage) Fade(out bool, color string, d float64) scenario.Handle {
	if out {
		return s.start(d, func() { s.fade = color })
	}
	return s.start(d, func() { s.fade = "" })
}

func (s *Stage) PlayBgm(file string, _ float64, _ bool) {
	s.bgm = file
	s.paused = false
}

func (s *Stage) PauseBgm(fade float64) scenario.Handle {
	return s.start(fade, func() { s.paused = true })
}

func (s *Stage) ResumeBgm(fade float64) scenario.Handle {
	s.paused = false
	return s.start(fade, nil)
}

func (s *Stage) PlaySe(file string, _ float64, _ int) { s.lastSe = file }

// State copies the current stage.
func (s *Stage) State() StageState {
	st := StageState{
		Background: s.bg,
		BgOffset:   s.bgOffset,
		Bgm:        s.bgm,
		BgmPaused:  s.paused,
		Fade:       s.fade,
		LastSe:     s.lastSe,
	}
	for _, a := range s.anims {
		if !a.done {
			st.Animating++
		}
	}
	for _, c := range s.chars {
		st.Characters = append(st.Characters, *c)
	}
	sort.Slice(st.Characters, func(i, j int) bool { return st.Characters[i].Name < st.Characters[j].Name })
	return st
}

// Reset clears everything, finishing no animations.
func (s *Stage) Reset() {
	*s = Stage{chars: make(map[string]*CharacterState)}
}
