package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"gobf/pkg/compiler"
	"gobf/pkg/grid"
	"gobf/pkg/machine"
	"gobf/pkg/utils"
)

const (
	cols       = 64
	rows       = 24
	charWidth  = 7
	charHeight = 13
)

var face = text.NewGoXFace(basicfont.Face7x13)

// keyInput is the program's input stream. Keys pushed by the UI are queued
// until the machine reads them; Read blocks while the queue is empty.
type keyInput struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []byte
	closed bool
}

func newKeyInput() *keyInput {
	k := &keyInput{}
	k.cond = sync.NewCond(&k.mu)
	return k
}

func (k *keyInput) Push(b ...byte) {
	k.mu.Lock()
	k.queue = append(k.queue, b...)
	k.mu.Unlock()
	k.cond.Broadcast()
}

// Close ends the stream. Pending bytes are still delivered.
func (k *keyInput) Close() {
	k.mu.Lock()
	k.closed = true
	k.mu.Unlock()
	k.cond.Broadcast()
}

func (k *keyInput) Read(p []byte) (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	for len(k.queue) == 0 && !k.closed {
		k.cond.Wait()
	}
	if len(k.queue) == 0 {
		return 0, io.EOF
	}
	n := copy(p, k.queue)
	k.queue = k.queue[n:]
	return n, nil
}

type Game struct {
	term *grid.Terminal
	keys *keyInput

	mu     sync.Mutex
	status string
	done   bool
}

func newGame() *Game {
	return &Game{
		term:   grid.NewTerminal(cols, rows),
		keys:   newKeyInput(),
		status: "running",
	}
}

// start evaluates prog on a fresh machine in the background. Output goes to
// the terminal grid, typed keys are echoed and fed to the program.
func (g *Game) start(prog compiler.Program) {
	vm := machine.NewMachine(g.keys, g.term)
	go func() {
		err := vm.Run(prog)
		g.mu.Lock()
		defer g.mu.Unlock()
		g.done = true
		if err != nil {
			g.status = fmt.Sprintf("error: %v", err)
			return
		}
		g.status = fmt.Sprintf("halted after %d steps, ptr=%d", vm.Steps, vm.Ptr)
	}()
}

func (g *Game) Status() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, g.done
}

// key handles one keystroke: it is echoed locally and queued for the program.
func (g *Game) key(b byte) {
	if _, done := g.Status(); done {
		return
	}
	_, _ = g.term.Write([]byte{b})
	g.keys.Push(b)
}

func (g *Game) Update() error {
	for _, r := range ebiten.AppendInputChars(nil) {
		if r < 0x80 {
			g.key(byte(r))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) {
		g.key('\n')
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.key('\b')
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) && inpututil.IsKeyJustPressed(ebiten.KeyD) {
		g.keys.Close()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	for y, line := range g.term.Lines() {
		if line == "" {
			continue
		}
		op := &text.DrawOptions{}
		op.GeoM.Translate(0, float64(y*charHeight))
		text.Draw(screen, line, face, op)
	}

	status, _ := g.Status()
	op := &text.DrawOptions{}
	op.GeoM.Translate(0, float64(rows*charHeight))
	op.ColorScale.Scale(0.6, 0.6, 0.6, 1)
	text.Draw(screen, status, face, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	// one extra row for the status line
	return cols * charWidth, (rows + 1) * charHeight
}

func main() {
	comments := flag.Bool("comments", true, "skip unrecognised characters")
	debug := flag.Bool("debug", false, "treat '#' as a tape dump command")
	noOpt := flag.Bool("no-opt", false, "disable loop idiom rewrites")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <program text | program file>", os.Args[0])
	}

	src, origin, err := utils.ResolveSource(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}
	prog, err := compiler.Analyze(src, compiler.Options{
		AllowComments: *comments,
		DebugSymbol:   *debug,
		NoOptimize:    *noOpt,
	})
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	title := "gobf"
	if origin != "" {
		title += " - " + origin
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cols*charWidth*2, (rows+1)*charHeight*2)
	ebiten.SetWindowTitle(title)

	game := newGame()
	game.start(prog)
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
	game.keys.Close()
}
