// Package reveal discloses dialogue text one character at a time over an
// explicit tick budget. The driver feeds elapsed milliseconds through Tick;
// nothing here reads a wall clock.
package reveal

import (
	"go.uber.org/zap"
)

// State of the reveal state machine.
type State int

const (
	Idle State = iota
	Revealing
	PunctuationPause
	Complete
	ParagraphPause
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Revealing:
		return "revealing"
	case PunctuationPause:
		return "punctuation_pause"
	case Complete:
		return "complete"
	case ParagraphPause:
		return "paragraph_pause"
	}
	return "unknown"
}

// Config holds reveal timing in milliseconds.
type Config struct {
	CharDelay        int
	PunctuationDelay int
	ParagraphDelay   int
	// SkipDivisor scales CharDelay down in skip mode.
	SkipDivisor int
}

// DefaultConfig returns the stock timings.
func DefaultConfig() Config {
	return Config{CharDelay: 40, PunctuationDelay: 300, ParagraphDelay: 500, SkipDivisor: 50}
}

// Paragraph describes the text being revealed.
type Paragraph struct {
	Speaker string
	// Scrolling paragraphs belong to a scroll run; the scroll buffer records
	// them, not the engine.
	Scrolling bool
	// AfterScrollEnd is set when a scroll run ended right before this text.
	AfterScrollEnd bool
}

// History receives completed non-scrolling paragraphs.
type History interface {
	Submit(speaker, text string)
}

// pauseMarks are the characters followed by a punctuation pause.
var pauseMarks = map[rune]bool{
	'、': true, '。': true, '，': true, '．': true, '！': true, '？': true, '…': true,
	',': true, '.': true, '!': true, '?': true,
}

// IsPauseMark reports whether r inserts a punctuation pause.
func IsPauseMark(r rune) bool { return pauseMarks[r] }

// Engine is the reveal state machine. It is not safe for concurrent use.
type Engine struct {
	cfg     Config
	history History
	logger  *zap.Logger

	text  []rune
	para  Paragraph
	shown int
	state State

	acc       int // ticks accumulated toward the next character
	pauseLeft int
	clock     int64
	doneAt    int64

	recorded   bool
	paraPaused bool
	auto, skip bool
}

// New creates an engine. A nil history discards completed text.
func New(cfg Config, history History, logger *zap.Logger) *Engine {
	if cfg.CharDelay < 1 {
		cfg.CharDelay = 1
	}
	if cfg.SkipDivisor < 1 {
		cfg.SkipDivisor = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, history: history, logger: logger}
}

// Set starts revealing text.
func (e *Engine) Set(text string, p Paragraph) {
	e.text = []rune(text)
	e.para = p
	e.shown = 0
	e.acc = 0
	e.pauseLeft = 0
	e.recorded = false
	e.paraPaused = false
	e.state = Revealing
	if len(e.text) == 0 {
		e.complete()
	}
}

// Clear returns the engine to Idle with no text.
func (e *Engine) Clear() {
	e.text = nil
	e.shown = 0
	e.acc = 0
	e.pauseLeft = 0
	e.state = Idle
}

// SetAutoMode toggles auto mode.
func (e *Engine) SetAutoMode(on bool) { e.auto = on }

// SetSkipMode toggles skip mode. Entering skip mode drops a pending pause.
func (e *Engine) SetSkipMode(on bool) {
	e.skip = on
	if !on {
		return
	}
	switch e.state {
	case PunctuationPause:
		e.pauseLeft = 0
		e.state = Revealing
	case ParagraphPause:
		e.pauseLeft = 0
		e.state = Complete
	}
}

// AutoMode reports whether auto mode is on.
func (e *Engine) AutoMode() bool { return e.auto }

// SkipMode reports whether skip mode is on.
func (e *Engine) SkipMode() bool { return e.skip }

// charDelay is the per-character delay in the current mode.
func (e *Engine) charDelay() int {
	if e.skip {
		return max(1, e.cfg.CharDelay/e.cfg.SkipDivisor)
	}
	return e.cfg.CharDelay
}

// Tick consumes elapsed milliseconds.
func (e *Engine) Tick(elapsed int) {
	for elapsed > 0 {
		switch e.state {
		case Revealing:
			need := e.charDelay() - e.acc
			if elapsed < need {
				e.acc += elapsed
				e.clock += int64(elapsed)
				return
			}
			elapsed -= need
			e.clock += int64(need)
			e.acc = 0
			e.revealOne()
		case PunctuationPause, ParagraphPause:
			if elapsed < e.pauseLeft {
				e.pauseLeft -= elapsed
				e.clock += int64(elapsed)
				return
			}
			elapsed -= e.pauseLeft
			e.clock += int64(e.pauseLeft)
			e.pauseLeft = 0
			if e.state == PunctuationPause {
				e.state = Revealing
			} else {
				e.state = Complete
				e.doneAt = e.clock
			}
		default:
			e.clock += int64(elapsed)
			return
		}
	}
}

func (e *Engine) revealOne() {
	e.shown++
	if e.shown >= len(e.text) {
		e.complete()
		return
	}
	if !e.skip && e.cfg.PunctuationDelay > 0 && IsPauseMark(e.text[e.shown-1]) {
		e.state = PunctuationPause
		e.pauseLeft = e.cfg.PunctuationDelay
	}
}

// complete finishes the reveal naturally.
func (e *Engine) complete() {
	e.shown = len(e.text)
	e.state = Complete
	e.doneAt = e.clock
	e.record()
	if e.auto && !e.skip && e.para.AfterScrollEnd && !e.paraPaused && e.cfg.ParagraphDelay > 0 {
		e.paraPaused = true
		e.state = ParagraphPause
		e.pauseLeft = e.cfg.ParagraphDelay
	}
}

// SkipReveal jumps to Complete from any state, cancelling pending pauses.
func (e *Engine) SkipReveal() {
	if e.state == Idle {
		return
	}
	e.shown = len(e.text)
	e.acc = 0
	e.pauseLeft = 0
	e.paraPaused = true
	if e.state != Complete {
		e.state = Complete
		e.doneAt = e.clock
	}
	e.record()
}

func (e *Engine) record() {
	if e.recorded || e.para.Scrolling {
		return
	}
	e.recorded = true
	if e.history != nil {
		e.history.Submit(e.para.Speaker, string(e.text))
	}
	e.logger.Debug("paragraph recorded", zap.String("speaker", e.para.Speaker), zap.Int("runes", len(e.text)))
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Visible returns the revealed prefix of the text.
func (e *Engine) Visible() string { return string(e.text[:e.shown]) }

// Shown is the number of visible characters.
func (e *Engine) Shown() int { return e.shown }

// Text returns the full text being revealed.
func (e *Engine) Text() string { return string(e.text) }

// IsComplete reports whether every character is visible.
func (e *Engine) IsComplete() bool {
	return e.state == Complete || e.state == ParagraphPause
}

// ReadyForNext reports whether the driver may advance to the next step.
func (e *Engine) ReadyForNext() bool { return e.state == Complete }

// Clock is the total number of ticks consumed.
func (e *Engine) Clock() int64 { return e.clock }

// CompletedAt is the tick at which the engine last became ready.
func (e *Engine) CompletedAt() int64 { return e.doneAt }

// WaitedFor reports whether ms ticks have passed since the engine became ready.
func (e *Engine) WaitedFor(ms int) bool {
	return e.state == Complete && e.clock-e.doneAt >= int64(ms)
}
