package player

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/normalize"
	"github.com/kasuganosora/scenarioplayer/game/script"
	"go.uber.org/zap"
)

// Compiled is a script run through the parser, normalizer and IR builder.
type Compiled struct {
	Name        string
	Hash        string // sha256 of the source text
	Events      []script.Event
	Records     []normalize.Record
	Program     *ir.Program
	Diagnostics []script.Diagnostic
}

// Compiler turns script text into a Program.
type Compiler struct {
	parser     *script.Parser
	normalizer *normalize.Normalizer
	logger     *zap.Logger
}

// NewCompiler creates a Compiler. names may be nil.
func NewCompiler(names normalize.Names, fallback string, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		parser:     script.NewParser(logger),
		normalizer: normalize.New(names, fallback, logger),
		logger:     logger,
	}
}

// Compile never fails: malformed lines become diagnostics and an empty
// script plays the fallback line.
func (c *Compiler) Compile(name, src string) *Compiled {
	events, diags := c.parser.Parse(src)
	records := c.normalizer.Normalize(events)
	prog := ir.Build(records)
	c.logger.Debug("script compiled",
		zap.String("script", name),
		zap.Int("events", len(events)),
		zap.Int("records", len(records)),
		zap.Int("steps", prog.Len()),
		zap.Int("diagnostics", len(diags)))
	return &Compiled{
		Name:        name,
		Hash:        SourceHash(src),
		Events:      events,
		Records:     records,
		Program:     prog,
		Diagnostics: diags,
	}
}

// SourceHash is the content key used for IR caching.
func SourceHash(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
