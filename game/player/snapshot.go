package player

import (
	"github.com/kasuganosora/scenarioplayer/game/backlog"
	"github.com/kasuganosora/scenarioplayer/game/flag"
	"github.com/kasuganosora/scenarioplayer/game/scenario"
	"github.com/kasuganosora/scenarioplayer/game/scroll"
)

// Snapshot is the externally visible state of a session.
type Snapshot struct {
	ID           string                  `json:"id"`
	Script       string                  `json:"script,omitempty"`
	State        string                  `json:"state"`
	Step         int                     `json:"step"`
	Steps        int                     `json:"steps"`
	Finished     bool                    `json:"finished"`
	FinishReason string                  `json:"finish_reason,omitempty"`
	Speaker      string                  `json:"speaker,omitempty"`
	Text         string                  `json:"text,omitempty"`
	Visible      string                  `json:"visible,omitempty"`
	TextComplete bool                    `json:"text_complete"`
	Reveal       string                  `json:"reveal"`
	Choice       []string                `json:"choice,omitempty"`
	Lines        []scroll.Line           `json:"lines"`
	Auto         bool                    `json:"auto"`
	Skip         bool                    `json:"skip"`
	Stage        *StageState             `json:"stage,omitempty"`
	Flags        map[string]flag.Value   `json:"flags"`
	Choices      []scenario.ChoiceRecord `json:"choices,omitempty"`
	Backlog      []backlog.Entry         `json:"backlog,omitempty"`
	Diagnostics  []string                `json:"diagnostics,omitempty"`
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.ID,
		State:        scenario.Idle.String(),
		Step:         -1,
		TextComplete: s.text == nil || s.reveal.IsComplete(),
		Reveal:       s.reveal.State().String(),
		Lines:        s.lines(),
		Auto:         s.auto,
		Skip:         s.skip,
		Flags:        s.flags.Snapshot(),
		Choices:      s.history.Records(),
		Backlog:      s.recorder.Entries(),
	}
	if s.stage != nil {
		st := s.stage.State()
		snap.Stage = &st
	}
	if s.text != nil {
		snap.Speaker = s.text.Speaker
		snap.Text = s.text.Body
		snap.Visible = s.reveal.Visible()
	}
	if s.compiled != nil {
		snap.Script = s.compiled.Name
		for _, d := range s.compiled.Diagnostics {
			snap.Diagnostics = append(snap.Diagnostics, d.String())
		}
	}
	if s.exec != nil {
		snap.State = s.exec.State().String()
		snap.Step = s.exec.Cursor()
		snap.Steps = s.exec.Program().Len()
		snap.Finished = s.exec.IsFinished()
		snap.FinishReason = s.exec.FinishReason()
		if opts, ok := s.exec.Choice(); ok {
			snap.Choice = opts
		}
		for _, d := range s.exec.Diagnostics() {
			snap.Diagnostics = append(snap.Diagnostics, d.String())
		}
	}
	return snap
}
