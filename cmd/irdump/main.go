// Command irdump compiles a scenario script and prints its step program.
//
//	irdump [-config config.yaml] [-format json|yaml] [-validate] [-o out] <script>
//	irdump -schema
//
// <script> is a file path, or a script name resolved under assets.script_dir.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kasuganosora/scenarioplayer/config"
	"github.com/kasuganosora/scenarioplayer/game/ir"
	"github.com/kasuganosora/scenarioplayer/game/player"
	"github.com/kasuganosora/scenarioplayer/logging"
	"github.com/kasuganosora/scenarioplayer/resource"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath string
	format     string
	validate   bool
	schema     bool
	out        string
	verbose    bool
	script     string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("irdump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "config file (character names, script dir)")
	fs.StringVar(&o.format, "format", "json", "output format: json or yaml")
	fs.BoolVar(&o.validate, "validate", false, "check the JSON dump against the IR schema")
	fs.BoolVar(&o.schema, "schema", false, "print the IR JSON schema and exit")
	fs.StringVar(&o.out, "o", "", "write to this file instead of stdout")
	fs.BoolVar(&o.verbose, "v", false, "debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: irdump [flags] <script file or name>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if !o.schema {
		if fs.NArg() != 1 {
			fs.Usage()
			return nil, errors.New("exactly one script is required")
		}
		o.script = fs.Arg(0)
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if o.schema {
		return write(o.out, stdout, stderr, ir.Schema())
	}

	format, err := ir.ParseFormat(o.format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	cfg.Log.File = ""
	if !o.verbose {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log, o.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	res := resource.NewLoader(cfg.Assets)
	if err := res.Load(); err != nil {
		logger.Warn("asset load warning", zap.Error(err))
	}

	name, src, err := readScript(res, o.script)
	if err != nil {
		logger.Error("read script", zap.String("script", o.script), zap.Error(err))
		return 1
	}

	compiled := player.NewCompiler(res, cfg.Playback.FallbackText, logger).Compile(name, src)
	for _, d := range compiled.Diagnostics {
		logger.Warn("diagnostic", zap.String("script", name), zap.Stringer("at", d))
	}

	if o.validate {
		doc, err := ir.Dump(compiled.Program, ir.FormatJSON)
		if err != nil {
			logger.Error("dump", zap.Error(err))
			return 1
		}
		if err := ir.Validate(doc); err != nil {
			logger.Error("schema validation failed", zap.Error(err))
			return 1
		}
	}

	out, err := ir.Dump(compiled.Program, format)
	if err != nil {
		logger.Error("dump", zap.Error(err))
		return 1
	}
	return write(o.out, stdout, stderr, out)
}

// readScript prefers an existing file and falls back to a named script.
func readScript(res *resource.Loader, arg string) (name, src string, err error) {
	if data, ferr := os.ReadFile(arg); ferr == nil {
		return arg, string(data), nil
	} else if !errors.Is(ferr, os.ErrNotExist) {
		return "", "", ferr
	}
	src, err = res.ReadScript(arg)
	return arg, src, err
}

func write(path string, stdout, stderr io.Writer, data []byte) int {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if path == "" {
		if _, err := stdout.Write(data); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}
