package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
	"github.com/tebeka/atexit"

	"gobf/pkg/compiler"
	"gobf/pkg/config"
	"gobf/pkg/logs"
	"gobf/pkg/machine"
)

const (
	banner      = "gobf console. Type :help for commands, Ctrl-D to exit."
	promptMain  = "bf> "
	promptCont  = "... "
	promptInput = "input? "
	historyFile = ".gobf_history"
)

const help = `:help          show this text
:quit          leave the console
:reset         clear the tape
:tape          dump the tape from cell 0
:ptr           show the pointer and current cell
:tree          toggle printing the analyzed tree before each run
:save <path>   write a tape snapshot
:load <path>   restore a tape snapshot`

func main() {
	configPath := flag.String("config", config.DefaultFile, "CUE config file")
	comments := flag.Bool("comments", false, "skip unrecognised characters instead of rejecting them")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		atexit.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "comments" {
			cfg.AllowComments = *comments
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

	atexit.Exit(repl(cfg, logger))
}

func historyPath(cfg config.Config) string {
	if cfg.History != "" {
		return cfg.History
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, historyFile)
}

func repl(cfg config.Config, logger *slog.Logger) int {
	fmt.Println(banner)

	histPath := historyPath(cfg)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		atexit.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	vm := machine.NewMachine(&lineInput{ln: ln}, os.Stdout)
	opts := cfg.AnalyzerOptions()
	showTree := false

	for {
		code, ok := readByParseProbe(ln, opts, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if strings.HasPrefix(trimmed, ":") {
			fields := strings.Fields(trimmed)
			switch strings.ToLower(fields[0]) {
			case ":quit":
				return 0
			case ":help":
				fmt.Println(help)
			case ":reset":
				vm.Reset()
			case ":tape":
				if err := vm.Run(compiler.Program{compiler.DebugDump{}}); err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			case ":ptr":
				fmt.Printf("ptr=%d cell=%d\n", vm.Ptr, vm.Tape[vm.Ptr])
			case ":tree":
				showTree = !showTree
				fmt.Printf("show tree: %t\n", showTree)
			case ":save", ":load":
				if len(fields) != 2 {
					fmt.Printf("usage: %s <path>\n", fields[0])
					continue
				}
				var err error
				if fields[0] == ":save" {
					err = vm.SnapshotToFile(fields[1])
				} else {
					err = vm.RestoreFromFile(fields[1])
				}
				if err != nil {
					fmt.Fprintln(os.Stderr, "error:", err)
				}
			default:
				fmt.Printf("unknown command. Type :help for a list.\n")
			}
			continue
		}

		prog, err := compiler.Analyze(code, opts)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if showTree {
			fmt.Print(prog.Format())
		}
		if err := vm.Run(prog); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		logger.Debug("line done", "ptr", vm.Ptr, "steps", vm.Steps)
		fmt.Println()
	}

	return 0
}

// readByParseProbe keeps prompting while the collected text is an
// incomplete program, so a loop may span several lines.
func readByParseProbe(ln *liner.State, opts compiler.Options, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := compiler.Analyze(src, opts); compiler.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

// lineInput feeds program reads from lines typed at the input prompt. Each
// line is delivered with its trailing newline.
type lineInput struct {
	ln  *liner.State
	buf []byte
	eof bool
}

func (in *lineInput) Read(p []byte) (int, error) {
	if len(in.buf) == 0 {
		if in.eof {
			return 0, io.EOF
		}
		line, err := in.ln.Prompt(promptInput)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			in.eof = true
			return 0, io.EOF
		}
		if err != nil {
			return 0, err
		}
		in.buf = append([]byte(line), '\n')
	}
	n := copy(p, in.buf)
	in.buf = in.buf[n:]
	return n, nil
}
