package script

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	speakerOpen  = "【"
	speakerClose = "】"
	speechOpen   = '「'
	speechClose  = '」'
	stopMarker   = "[stop]"
)

// Diagnostic describes a rejected line.
type Diagnostic struct {
	Line   int    `json:"line"`
	Tag    string `json:"tag,omitempty"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	if d.Tag != "" {
		return fmt.Sprintf("line %d [%s]: %s", d.Line, d.Tag, d.Reason)
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
}

// Parser scans script text. A Parser holds no state between Parse calls and
// may be shared.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser that reports rejected lines to logger.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// scan is the state of one Parse call.
type scan struct {
	p       *Parser
	events  []Event
	diags   []Diagnostic
	speaker string
	face    Face // pending expression from the last speaker line
}

// Parse converts src into events. It never fails: malformed lines are
// skipped and reported as diagnostics.
func (p *Parser) Parse(src string) ([]Event, []Diagnostic) {
	s := &scan{p: p}
	src = strings.TrimPrefix(norm.NFC.String(src), "\ufeff")
	for i, raw := range strings.Split(src, "\n") {
		s.line(i+1, raw)
	}
	return s.events, s.diags
}

func (s *scan) reject(line int, tag, format string, args ...any) {
	d := Diagnostic{Line: line, Tag: tag, Reason: fmt.Sprintf(format, args...)}
	s.diags = append(s.diags, d)
	s.p.logger.Warn("script line skipped",
		zap.Int("line", line),
		zap.String("tag", tag),
		zap.String("reason", d.Reason))
}

func (s *scan) line(n int, raw string) {
	text := strings.TrimSpace(foldSyntax(strings.TrimRight(raw, "\r")))
	switch {
	case text == "", strings.HasPrefix(text, "//"), strings.HasPrefix(text, ";"):
		return
	case strings.HasPrefix(text, speakerOpen):
		s.speakerLine(n, text)
	case strings.HasPrefix(text, "[") && !strings.HasPrefix(text, stopMarker):
		s.tagLine(n, text)
	case strings.ContainsRune(text, speechOpen):
		s.dialogueLine(n, text)
	case text == stopMarker:
		s.events = append(s.events, &ScrollStop{at: at{n}})
	default:
		s.reject(n, "", "unrecognized line %q", text)
	}
}

// speakerLine handles `【id】` or `【id eye="smile" ...】`, optionally
// followed by dialogue on the same line.
func (s *scan) speakerLine(n int, text string) {
	end := strings.Index(text, speakerClose)
	if end < 0 {
		s.reject(n, "", "unclosed speaker bracket")
		return
	}
	inner := strings.TrimSpace(text[len(speakerOpen):end])
	rest := strings.TrimSpace(text[end+len(speakerClose):])
	if rest != "" && !strings.ContainsRune(rest, speechOpen) {
		s.reject(n, "", "unexpected text after speaker: %q", rest)
		return
	}
	name, attrs, _ := strings.Cut(inner, " ")
	var face Face
	if attrs = strings.TrimSpace(attrs); attrs != "" {
		raw, _, err := lexTag("[speaker " + attrs + "]")
		if err != nil {
			s.reject(n, "", "speaker attributes: %v", err)
			return
		}
		r := newAttrReader(raw)
		face = readFace(r)
		if extra := r.unused(); len(extra) > 0 {
			s.reject(n, "", "unknown speaker attributes: %s", strings.Join(extra, ", "))
			return
		}
	}
	s.speaker = name
	s.face = face
	if rest != "" {
		s.dialogueLine(n, rest)
	}
}

func (s *scan) tagLine(n int, text string) {
	raw, rest, err := lexTag(text)
	if err != nil {
		s.reject(n, raw.name, "%v", err)
		return
	}
	if strings.TrimSpace(rest) != "" {
		s.reject(n, raw.name, "trailing text after tag: %q", strings.TrimSpace(rest))
		return
	}
	build, ok := tagBuilders[raw.name]
	if !ok {
		s.reject(n, raw.name, "unknown tag")
		return
	}
	r := newAttrReader(raw)
	ev, err := build(r, n)
	if err == nil {
		err = r.err
	}
	if err != nil {
		s.reject(n, raw.name, "%v", err)
		return
	}
	if extra := r.unused(); len(extra) > 0 {
		s.p.logger.Debug("unknown attributes ignored",
			zap.Int("line", n),
			zap.String("tag", raw.name),
			zap.Strings("attrs", extra))
	}
	if name, ok := Character(ev); ok {
		if name != s.speaker {
			s.face = Face{}
		}
		s.speaker = name
	}
	s.events = append(s.events, ev)
}

// dialogueLine emits one Dialogue per 「...」 span and a trailing ScrollStop
// when a [stop] marker appears anywhere on the line. Any problem rejects the
// whole line.
func (s *scan) dialogueLine(n int, text string) {
	var spans []string
	stop := false
	rest := text
	for rest != "" {
		open := strings.IndexRune(rest, speechOpen)
		if open < 0 {
			break
		}
		if between := strings.TrimSpace(rest[:open]); between != "" {
			if !s.onlyStops(between) {
				s.reject(n, "", "unexpected text between dialogue spans: %q", between)
				return
			}
			stop = true
		}
		body := rest[open+len(string(speechOpen)):]
		end := strings.IndexRune(body, speechClose)
		if end < 0 {
			s.reject(n, "", "unclosed dialogue quote")
			return
		}
		span := body[:end]
		if strings.Contains(span, stopMarker) {
			stop = true
			span = strings.ReplaceAll(span, stopMarker, "")
		}
		span = strings.TrimSpace(span)
		if span == "" {
			s.reject(n, "", "empty dialogue")
			return
		}
		spans = append(spans, span)
		rest = body[end+len(string(speechClose)):]
	}
	if tail := strings.TrimSpace(rest); tail != "" {
		if !s.onlyStops(tail) {
			s.reject(n, "", "unexpected text after dialogue: %q", tail)
			return
		}
		stop = true
	}
	if len(spans) == 0 {
		s.reject(n, "", "no dialogue span")
		return
	}
	for _, span := range spans {
		s.events = append(s.events, &Dialogue{at: at{n}, Speaker: s.speaker, Text: span, Face: s.face})
		s.face = Face{}
	}
	if stop {
		s.events = append(s.events, &ScrollStop{at: at{n}})
	}
}

func (s *scan) onlyStops(text string) bool {
	return strings.TrimSpace(strings.ReplaceAll(text, stopMarker, "")) == ""
}

// foldSyntax narrows full-width ASCII variants (［］＝＂ and the ideographic
// space) outside of quoted attribute values and dialogue spans, and widens
// half-width 「」, so tag recognition works on IME-typed scripts without
// touching dialogue text.
func foldSyntax(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var quote rune
	inSpeech := false
	for _, r := range s {
		f := r
		if folded := width.LookupRune(r).Folded(); folded != 0 {
			f = folded
		}
		switch {
		case inSpeech:
			if f == speechClose {
				inSpeech = false
				r = f
			}
			b.WriteRune(r)
			continue
		case quote != 0:
			if f == quote {
				quote = 0
				r = f
			}
			b.WriteRune(r)
			continue
		}
		switch f {
		case speechOpen:
			inSpeech = true
		case '"', '\'':
			quote = f
		}
		b.WriteRune(f)
	}
	return b.String()
}
