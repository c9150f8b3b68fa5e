package ir

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Format is an IR dump encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnknownFormat is returned for a format other than json or yaml.
var ErrUnknownFormat = errors.New("ir: unknown dump format")

// ParseFormat accepts "json", "yaml" and "yml"; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

type dumpDoc struct {
	Steps []dumpStep `json:"steps"`
}

type dumpStep struct {
	ID          int          `json:"id"`
	Text        *dumpText    `json:"text,omitempty"`
	Actions     []dumpAction `json:"actions,omitempty"`
	SourceIndex []int        `json:"source_index"`
}

type dumpText struct {
	SpeakerID string `json:"speaker_id,omitempty"`
	Speaker   string `json:"speaker"`
	Body      string `json:"body"`
	Scroll    bool   `json:"scroll"`
}

type dumpAction struct {
	Action    ActionKind     `json:"action"`
	Target    string         `json:"target,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Animation *Animation     `json:"animation,omitempty"`
}

func toDoc(p *Program) dumpDoc {
	doc := dumpDoc{Steps: make([]dumpStep, 0, len(p.Steps))}
	for _, s := range p.Steps {
		ds := dumpStep{ID: s.ID, SourceIndex: s.SourceIndex}
		if ds.SourceIndex == nil {
			ds.SourceIndex = []int{}
		}
		if s.Text != nil {
			ds.Text = &dumpText{
				SpeakerID: s.Text.SpeakerID,
				Speaker:   s.Text.Speaker,
				Body:      s.Text.Body,
				Scroll:    s.Text.Scroll,
			}
		}
		for _, a := range s.Actions {
			ds.Actions = append(ds.Actions, dumpAction{
				Action:    a.Kind(),
				Target:    a.Target(),
				Params:    a.Params(),
				Animation: a.Animation(),
			})
		}
		doc.Steps = append(doc.Steps, ds)
	}
	return doc
}

// Dump serializes a program. Map keys are emitted in sorted order, so equal
// programs give byte-identical documents.
func Dump(p *Program, f Format) ([]byte, error) {
	js, err := json.MarshalIndent(toDoc(p), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("ir: encode json: %w", err)
	}
	switch f {
	case FormatJSON, "":
		return js, nil
	case FormatYAML:
		var generic any
		if err := json.Unmarshal(js, &generic); err != nil {
			return nil, fmt.Errorf("ir: reread json: %w", err)
		}
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return nil, fmt.Errorf("ir: encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("ir: encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

//go:embed schema.json
var schema []byte

// Schema returns the JSON Schema of the JSON dump.
func Schema() []byte { return append([]byte(nil), schema...) }

// Validate checks a JSON dump against the embedded schema.
func Validate(doc []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("ir: schema validate: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("ir: dump does not conform to schema: %s", strings.Join(msgs, "; "))
}
