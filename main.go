//go:build !js

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/tebeka/atexit"

	"gobf/pkg/compiler"
	"gobf/pkg/config"
	"gobf/pkg/logs"
	"gobf/pkg/machine"
	"gobf/pkg/utils"
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "CUE config file")
	comments := flag.Bool("comments", false, "skip unrecognised characters instead of rejecting them")
	debug := flag.Bool("debug", false, "treat '#' as a tape dump command")
	noOpt := flag.Bool("no-opt", false, "disable loop idiom rewrites")
	showTree := flag.Bool("show-tree", false, "print the analyzed program tree to stderr before running")
	analyzeOnly := flag.Bool("analyze", false, "analyze the program and exit without running it")
	snapshot := flag.String("snapshot", "", "write the final tape snapshot (zip) to this path")
	restore := flag.String("restore", "", "start from a tape snapshot (zip) instead of an empty tape")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "also write JSON logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <program text | program file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		atexit.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(2)
	}

	// explicitly set flags win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "comments":
			cfg.AllowComments = *comments
		case "debug":
			cfg.DebugSymbol = *debug
		case "no-opt":
			cfg.NoOptimize = *noOpt
		case "snapshot":
			cfg.Snapshot = *snapshot
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-file":
			cfg.LogFile = *logFile
		}
	})

	if err := logs.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(2)
	}
	logger, closeLogs, err := logs.New(os.Stderr, logs.Options{File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Register(func() { _ = closeLogs() })

	src, origin, err := utils.ResolveSource(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read program file %q: %v\n", origin, err)
		atexit.Exit(1)
	}
	if origin != "" {
		logger.Info("loaded program", "path", origin, "bytes", len(src))
	}

	prog, err := compiler.Analyze(src, cfg.AnalyzerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(1)
	}
	logger.Debug("analyzed", "ops", prog.Size(), "top_level", len(prog))

	if *showTree || *analyzeOnly {
		fmt.Fprint(os.Stderr, prog.Format())
	}
	if *analyzeOnly {
		atexit.Exit(0)
	}

	if err := run(prog, cfg, *restore, os.Stdin, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// run evaluates prog with buffered stdout and writes the optional snapshot.
func run(prog compiler.Program, cfg config.Config, restorePath string, in io.Reader, out io.Writer, logger *slog.Logger) error {
	w := bufio.NewWriter(out)
	vm := machine.NewMachine(bufio.NewReader(flushingReader{in, w}), w)
	vm.Logger = logger

	if restorePath != "" {
		if err := vm.RestoreFromFile(restorePath); err != nil {
			return fmt.Errorf("restore %s: %w", restorePath, err)
		}
	}

	runErr := vm.Run(prog)
	if err := w.Flush(); err != nil && runErr == nil {
		runErr = &machine.RuntimeError{Op: compiler.Output{}, Ptr: vm.Ptr, Err: err}
	}

	if cfg.Snapshot != "" {
		if err := vm.SnapshotToFile(cfg.Snapshot); err != nil {
			return fmt.Errorf("snapshot %s: %w", cfg.Snapshot, err)
		}
		logger.Info("wrote snapshot", "path", cfg.Snapshot, "ptr", vm.Ptr)
	}
	return runErr
}

// flushingReader flushes pending output before blocking on input, so prompts
// written by the program are visible.
type flushingReader struct {
	r io.Reader
	w *bufio.Writer
}

func (f flushingReader) Read(p []byte) (int, error) {
	if err := f.w.Flush(); err != nil {
		return 0, err
	}
	return f.r.Read(p)
}
