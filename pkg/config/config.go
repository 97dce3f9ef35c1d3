// Package config loads run settings from CUE files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"gobf/pkg/compiler"
)

// DefaultFile is read when no -config flag is given.
const DefaultFile = "gobf.cue"

const schemaSrc = `
allowComments?: bool
debugSymbol?:   bool
noOptimize?:    bool
logLevel?:      "debug" | "info" | "warn" | "error"
logFile?:       string
history?:       string
snapshot?:      string
`

type Config struct {
	AllowComments bool   `json:"allowComments"`
	DebugSymbol   bool   `json:"debugSymbol"`
	NoOptimize    bool   `json:"noOptimize"`
	LogLevel      string `json:"logLevel"`
	LogFile       string `json:"logFile"`
	History       string `json:"history"`  // REPL history file
	Snapshot      string `json:"snapshot"` // write the final tape here
}

func Default() Config {
	return Config{LogLevel: "warn"}
}

// AnalyzerOptions maps the config onto the analysis policy.
func (c Config) AnalyzerOptions() compiler.Options {
	return compiler.Options{
		AllowComments: c.AllowComments,
		DebugSymbol:   c.DebugSymbol,
		NoOptimize:    c.NoOptimize,
	}
}

// Load unifies every existing file in paths with the schema and decodes the
// result over Default(). Files that do not exist are skipped; files that
// disagree on a value are a unification error.
func Load(paths ...string) (Config, error) {
	cfg := Default()

	ctx := cuecontext.New()
	value := ctx.CompileString("close({" + schemaSrc + "})")
	if err := value.Err(); err != nil {
		return cfg, fmt.Errorf("config schema: %w", err)
	}

	for _, path := range paths {
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, err
		}

		fileValue := ctx.CompileBytes(content, cue.Filename(path))
		if err := fileValue.Err(); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
		value = value.Unify(fileValue)
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := value.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
