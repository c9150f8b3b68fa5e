package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"github.com/kasuganosora/scenarioplayer/game/reveal"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/game/scroll"
	"github.com/kasuganosora/scenarioplayer/plugin/hook"
	"go.uber.org/zap"
)

var (
	// ErrNoScript is returned by operations that need a loaded script.
	ErrNoScript = errors.New("player: no script loaded")
	// ErrChoiceVetoed is returned when a hook refused a selection.
	ErrChoiceVetoed = errors.New("player: choice vetoed")
)

// ScriptSource reads script text by name. *resource.Loader implements it.
type ScriptSource interface {
	ReadScript(name string) (string, error)
}

// Deps are the collaborators of a Session. Any nil field falls back to an
// in-memory or no-op implementation.
type Deps struct {
	Scripts ScriptSource
	Names   normalize.Names
	Assets  scenario.Assets
	// Stage and Mixer default to a headless Stage driven by Tick.
	Stage   scenario.Stage
	Mixer   scenario.Mixer
	Flags   *flag.Store
	Choices scenario.ChoiceLog
	Events  scenario.EventRegistry
	Backlog backlog.Writer
	Hooks   *hook.HookCenter
}

// Session plays one script at a time. The flag store and choice history
// outlive individual loads; everything else is rebuilt by each load.
// Methods are safe to call from multiple goroutines.
type Session struct {
	ID string

	mu       sync.Mutex
	cfg      config.PlaybackConfig
	deps     Deps
	compiler *Compiler
	logger   *zap.Logger

	flags    *flag.Store
	history  *scenario.ChoiceHistory
	stage    *Stage // nil when Deps supplied a Stage
	recorder *backlog.Recorder
	reveal   *reveal.Engine
	scroll   *scroll.Buffer

	compiled *Compiled
	exec     *scenario.Executor
	text     *ir.Text
	step     int
	// scrollEnded is set when a run ended on a scroll stop and cleared by
	// the next text.
	scrollEnded bool
	auto, skip  bool
	closed      bool
}

// NewSession creates an idle session.
func NewSession(id string, cfg config.PlaybackConfig, deps Deps, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", id))
	s := &Session{
		ID:       id,
		cfg:      cfg,
		deps:     deps,
		compiler: NewCompiler(deps.Names, cfg.FallbackText, logger),
		logger:   logger,
		flags:    deps.Flags,
		history:  scenario.NewChoiceHistory(),
		recorder: backlog.NewRecorder(deps.Backlog, cfg.Profile, 200),
		step:     -1,
	}
	if s.flags == nil {
		s.flags = flag.NewStore(cfg.Profile, nil, logger)
	}
	if deps.Stage == nil || deps.Mixer == nil {
		s.stage = NewStage()
	}
	s.reveal = reveal.New(reveal.Config{
		CharDelay:        cfg.CharDelay,
		PunctuationDelay: cfg.PunctuationDelay,
		ParagraphDelay:   cfg.ParagraphDelay,
		SkipDivisor:      cfg.SkipDivisor,
	}, s.recorder, logger)
	s.scroll = scroll.New(cfg.MaxScrollBlocks, s.recorder.Scrolled(), logger)
	return s
}

// LoadScript reads a script through Deps.Scripts and loads it.
func (s *Session) LoadScript(ctx context.Context, name string) error {
	if s.deps.Scripts == nil {
		return fmt.Errorf("player: load %s: no script source", name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.deps.Scripts.ReadScript(name)
	if err != nil {
		return fmt.Errorf("player: load %s: %w", name, err)
	}
	s.LoadSource(name, src)
	return nil
}

// LoadSource compiles src and makes it the current script. Playback starts
// on the first Advance.
func (s *Session) LoadSource(name, src string) *Compiled {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.compiler.Compile(name, src)
	// text from the previous script reaches history before it is dropped
	s.scroll.Stop()
	s.reveal.Clear()
	s.scroll.Reset()
	if s.stage != nil {
		s.stage.Reset()
	}
	s.text = nil
	s.step = -1
	s.scrollEnded = false
	s.recorder.SetScript(name)
	s.compiled = c

	stage, mixer := s.deps.Stage, s.deps.Mixer
	if stage == nil {
		stage = s.stage
	}
	if mixer == nil {
		mixer = s.stage
	}
	s.exec = scenario.New(c.Program, name, scenario.Options{
		Stage:    stage,
		Mixer:    mixer,
		Assets:   s.deps.Assets,
		Flags:    s.flags,
		Choices:  s.deps.Choices,
		Events:   s.deps.Events,
		Listener: listener{s},
		History:  s.history,
	}, s.logger)

	s.logger.Info("script loaded",
		zap.String("script", name),
		zap.Int("steps", c.Program.Len()),
		zap.Int("diagnostics", len(c.Diagnostics)))
	s.trigger(&hook.Event{Type: hook.OnScriptLoaded})
	return c
}

// Advance moves playback to the next text or choice. It returns false while
// the reveal is incomplete, a choice is open, a block animation is running,
// or the script has finished.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advance()
}

func (s *Session) advance() bool {
	if s.exec == nil || s.closed {
		return false
	}
	if s.text != nil && !s.reveal.IsComplete() {
		return false
	}
	return s.exec.Advance()
}

// SelectChoice picks option index of the open choice and continues.
func (s *Session) SelectChoice(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exec == nil {
		return ErrNoScript
	}
	opts, ok := s.exec.Choice()
	if !ok {
		return scenario.ErrNotAwaitingChoice
	}
	if index < 0 || index >= len(opts) {
		return fmt.Errorf("%w: %d of %d", scenario.ErrChoiceOutOfRange, index, len(opts))
	}
	ev := &hook.Event{Type: hook.BeforeChoiceSelect, Options: opts, Index: index}
	if err := s.trigger(ev); errors.Is(err, hook.ErrInterrupt) {
		return ErrChoiceVetoed
	}
	step := s.step
	if err := s.exec.SelectChoice(index); err != nil {
		return err
	}
	recs := s.history.Records()
	rec := recs[len(recs)-1]
	s.trigger(&hook.Event{
		Type:    hook.OnChoiceSelected,
		Step:    step,
		Options: opts,
		Index:   index,
		Text:    rec.Text,
		Reason:  scenario.ChoiceFlag(rec.Ordinal),
	})
	return nil
}

// IsAwaitingChoice reports whether a choice is open.
func (s *Session) IsAwaitingChoice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec != nil && s.exec.IsAwaitingChoice()
}

// IsTextComplete reports whether the current text is fully revealed. It is
// true when no text is showing.
func (s *Session) IsTextComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text == nil || s.reveal.IsComplete()
}

// IsFinished reports whether the loaded script has played to the end.
func (s *Session) IsFinished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exec != nil && s.exec.IsFinished()
}

// SkipReveal shows the rest of the current text at once.
func (s *Session) SkipReveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveal.SkipReveal()
}

// SetAutoMode toggles automatic advancing after auto_wait.
func (s *Session) SetAutoMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto = on
	s.reveal.SetAutoMode(on)
}

// SetSkipMode toggles fast reveal with immediate advancing.
func (s *Session) SetSkipMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip = on
	s.reveal.SetSkipMode(on)
}

// VisibleTranscriptLines renders the transcript window, wrapped to the
// configured width.
func (s *Session) VisibleTranscriptLines() []scroll.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines()
}

func (s *Session) lines() []scroll.Line {
	newest := -1
	if s.text != nil {
		newest = s.reveal.Shown()
	}
	return s.scroll.Lines(s.cfg.TranscriptWidth, newest)
}

// Tick is the per-frame update: it polls animations, feeds elapsed
// milliseconds to the reveal engine and auto-advances in auto or skip mode.
func (s *Session) Tick(elapsed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exec == nil || s.closed {
		return
	}
	if s.stage != nil {
		s.stage.Tick(elapsed)
	}
	s.exec.Update()
	s.reveal.Tick(elapsed)
	if s.autoReady() {
		s.advance()
	}
}

func (s *Session) autoReady() bool {
	if !s.auto && !s.skip {
		return false
	}
	if s.exec.IsFinished() || s.exec.IsAwaitingChoice() || s.exec.IsBlocked() {
		return false
	}
	if s.text == nil {
		return true
	}
	if s.skip {
		return s.reveal.ReadyForNext()
	}
	return s.reveal.WaitedFor(s.cfg.AutoWait)
}

// Close ends the session, sending any unsaved scroll text to history.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.scroll.Stop()
}

// IsClosed reports whether Close was called.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Flags returns the session's flag store.
func (s *Session) Flags() *flag.Store { return s.flags }

// History returns the choice history shared across loads.
func (s *Session) History() *scenario.ChoiceHistory { return s.history }

// Backlog returns the in-memory backlog, oldest first.
func (s *Session) Backlog() []backlog.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recorder.Entries()
}

// Compiled returns the current script's compilation result.
func (s *Session) Compiled() *Compiled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compiled
}

func (s *Session) trigger(ev *hook.Event) error {
	if s.deps.Hooks == nil {
		return nil
	}
	ev.Session = s.ID
	if s.compiled != nil {
		ev.Script = s.compiled.Name
	}
	if ev.Type != hook.OnScriptLoaded && ev.Step == 0 {
		ev.Step = s.step
	}
	return s.deps.Hooks.Trigger(context.Background(), ev)
}

// listener receives executor notifications. It runs with s.mu held.
type listener struct{ s *Session }

func (l listener) OnText(step int, t ir.Text) {
	s := l.s
	s.step = step
	s.recorder.SetStep(step)
	sp := scroll.Speaker{ID: t.SpeakerID, Name: t.Speaker}
	if t.Scroll && (s.scroll.ShouldContinue(sp.ID) || s.scroll.ShouldStart(sp.ID)) {
		s.scroll.Add(t.Body, sp)
		s.reveal.Set(t.Body, reveal.Paragraph{Speaker: t.Speaker, Scrolling: true})
	} else {
		ended := s.scroll.Active()
		s.scroll.Begin(sp, t.Body)
		s.reveal.Set(t.Body, reveal.Paragraph{Speaker: t.Speaker, AfterScrollEnd: ended || s.scrollEnded})
	}
	s.scrollEnded = false
	s.text = &t
	s.trigger(&hook.Event{Type: hook.OnTextShown, Step: step, Speaker: t.Speaker, Text: t.Body})
}

func (l listener) OnChoice(step int, options []string) {
	l.s.step = step
	l.s.trigger(&hook.Event{Type: hook.OnChoiceShown, Step: step, Options: options})
}

func (l listener) OnScrollStop(step int) {
	s := l.s
	if s.scroll.Stop() {
		s.scrollEnded = true
	}
	s.trigger(&hook.Event{Type: hook.OnScrollStopped, Step: step})
}

func (l listener) OnFinished(reason string) {
	s := l.s
	s.scroll.Flush()
	s.logger.Info("script finished", zap.String("reason", reason))
	s.trigger(&hook.Event{Type: hook.OnScriptFinished, Reason: reason})
}
