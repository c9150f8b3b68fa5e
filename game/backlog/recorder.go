package backlog

// Writer persists entries. *Service implements it.
type Writer interface {
	Log(e Entry)
}

// Recorder is the per-session history sink. It keeps the most recent
// entries in memory and forwards every entry to an optional Writer.
type Recorder struct {
	w       Writer
	profile string
	script  string
	step    int
	max     int
	entries []Entry
}

// NewRecorder creates a recorder keeping at most max entries in memory
// (unbounded when max <= 0). w may be nil.
func NewRecorder(w Writer, profile string, max int) *Recorder {
	return &Recorder{w: w, profile: profile, max: max}
}

// SetScript sets the script name stamped on later entries.
func (r *Recorder) SetScript(name string) { r.script = name }

// SetStep sets the step id stamped on later entries.
func (r *Recorder) SetStep(id int) { r.step = id }

// Submit records a completed paragraph.
func (r *Recorder) Submit(speaker, text string) { r.add(speaker, text, false) }

// Scrolled returns a sink that marks its entries as scroll-run paragraphs.
func (r *Recorder) Scrolled() ScrolledSink { return ScrolledSink{r: r} }

func (r *Recorder) add(speaker, text string, scrolled bool) {
	e := Entry{
		Profile:  r.profile,
		Script:   r.script,
		StepID:   r.step,
		Speaker:  speaker,
		Text:     text,
		Scrolled: scrolled,
	}
	r.entries = append(r.entries, e)
	if r.max > 0 && len(r.entries) > r.max {
		r.entries = append(r.entries[:0], r.entries[len(r.entries)-r.max:]...)
	}
	if r.w != nil {
		r.w.Log(e)
	}
}

// Entries returns the in-memory entries, oldest first.
func (r *Recorder) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ScrolledSink forwards to a Recorder with Scrolled set.
type ScrolledSink struct {
	r *Recorder
}

// Submit records a paragraph appended by a scroll run.
func (s ScrolledSink) Submit(speaker, text string) { s.r.add(speaker, text, true) }
