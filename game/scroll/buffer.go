// Package scroll keeps the bounded transcript of a scrolling run: consecutive
// paragraphs from one speaker that accumulate instead of replacing each other.
package scroll

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"go.uber.org/zap"
)

// DefaultMaxBlocks is the default visible block cap.
const DefaultMaxBlocks = 3

// Speaker identifies who says a paragraph. Runs are keyed on ID; Name is
// only the rendered label, and different IDs may share one (e.g. "???").
type Speaker struct {
	ID   string
	Name string
}

// Block is one paragraph in the buffer.
type Block struct {
	SpeakerID  string `json:"speaker_id,omitempty"`
	Speaker    string `json:"speaker"`
	Text       string `json:"text"`
	FirstOfRun bool   `json:"first_of_run"`
}

// Line is one rendered transcript line. Label is set on the first line of a
// block whose speaker id has no earlier block in the visible window.
type Line struct {
	Label      string `json:"label,omitempty"`
	Text       string `json:"text"`
	FirstOfRun bool   `json:"first_of_run,omitempty"`
}

// History receives the paragraphs a run appended once the run stops.
type History interface {
	Submit(speaker, text string)
}

// Buffer is a FIFO of blocks. It is not safe for concurrent use.
type Buffer struct {
	max     int
	history History
	logger  *zap.Logger

	blocks  []Block
	active  bool
	speaker Speaker
	// appended holds every block added by continuation in the current run,
	// including ones already evicted from view.
	appended []Block
}

// New creates a buffer holding at most maxBlocks blocks.
func New(maxBlocks int, history History, logger *zap.Logger) *Buffer {
	if maxBlocks < 1 {
		maxBlocks = DefaultMaxBlocks
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buffer{max: maxBlocks, history: history, logger: logger}
}

// Begin shows a fresh non-continuing paragraph, ending any active run.
func (b *Buffer) Begin(sp Speaker, text string) {
	b.Stop()
	b.blocks = []Block{{SpeakerID: sp.ID, Speaker: sp.Name, Text: text, FirstOfRun: true}}
}

// ShouldStart reports whether text from speaker id would start a run: the
// last paragraph shown came from the same speaker and no stop intervened.
func (b *Buffer) ShouldStart(id string) bool {
	return !b.active && len(b.blocks) > 0 && b.blocks[len(b.blocks)-1].SpeakerID == id
}

// ShouldContinue reports whether text from speaker id extends the active run.
func (b *Buffer) ShouldContinue(id string) bool {
	return b.active && b.speaker.ID == id
}

// Add appends text as a new block, starting a run if none is active.
func (b *Buffer) Add(text string, sp Speaker) {
	if !b.active {
		b.active = true
		b.speaker = sp
		b.appended = b.appended[:0]
	}
	first := len(b.blocks) == 0 || b.blocks[len(b.blocks)-1].SpeakerID != sp.ID
	blk := Block{SpeakerID: sp.ID, Speaker: sp.Name, Text: text, FirstOfRun: first}
	b.blocks = append(b.blocks, blk)
	b.appended = append(b.appended, blk)
	if over := len(b.blocks) - b.max; over > 0 {
		b.blocks = append(b.blocks[:0], b.blocks[over:]...)
	}
}

// Flush submits the run's appended blocks to history and keeps them on
// screen. Later Flush or Stop calls submit only blocks added since.
func (b *Buffer) Flush() {
	for _, blk := range b.appended {
		if b.history != nil {
			b.history.Submit(blk.Speaker, blk.Text)
		}
	}
	b.appended = b.appended[:0]
}

// Stop ends the run and clears the buffer. The run's appended blocks go to
// history. It reports whether a run was active.
func (b *Buffer) Stop() bool {
	wasActive := b.active
	if wasActive {
		b.logger.Debug("scroll run ended",
			zap.String("speaker", b.speaker.ID),
			zap.Int("appended", len(b.appended)))
		b.Flush()
	}
	b.blocks = nil
	b.appended = nil
	b.active = false
	b.speaker = Speaker{}
	return wasActive
}

// Reset drops all content without submitting anything.
func (b *Buffer) Reset() {
	b.blocks = nil
	b.appended = nil
	b.active = false
	b.speaker = Speaker{}
}

// Active reports whether a run is in progress.
func (b *Buffer) Active() bool { return b.active }

// Blocks returns a copy of the visible blocks, oldest first.
func (b *Buffer) Blocks() []Block {
	out := make([]Block, len(b.blocks))
	copy(out, b.blocks)
	return out
}

// Lines renders the visible blocks. Text is wrapped to width display
// columns; width <= 0 disables wrapping. The newest block is cut to its
// first newest runes so a paragraph still being revealed renders partially;
// a negative newest renders it whole.
func (b *Buffer) Lines(width, newest int) []Line {
	seen := make(map[string]bool, len(b.blocks))
	var out []Line
	for i, blk := range b.blocks {
		text := blk.Text
		if i == len(b.blocks)-1 && newest >= 0 {
			if r := []rune(text); newest < len(r) {
				text = string(r[:newest])
			}
		}
		label := ""
		if !seen[blk.SpeakerID] {
			seen[blk.SpeakerID] = true
			label = blk.Speaker
			if width > 0 && runewidth.StringWidth(label) > width {
				label = runewidth.Truncate(label, width, "…")
			}
		}
		for j, l := range Wrap(text, width) {
			line := Line{Text: l}
			if j == 0 {
				line.Label = label
				line.FirstOfRun = blk.FirstOfRun
			}
			out = append(out, line)
		}
	}
	return out
}

// Wrap breaks s into lines of at most width display columns, preferring
// word boundaries and hard-breaking words that do not fit.
func Wrap(s string, width int) []string {
	if width <= 0 {
		return strings.Split(s, "\n")
	}
	return strings.Split(wrap.String(wordwrap.String(s, width), width), "\n")
}
