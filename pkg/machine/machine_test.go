package machine_test

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"strings"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"gobf/pkg/compiler"
	"gobf/pkg/machine"
)

const helloWorld = "++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.>---.+++++++..+++.>>.<-.<.+++.------.--------.>>+.>++."

func analyze(src string) compiler.Program {
	prog, err := compiler.Analyze(src, compiler.Options{DebugSymbol: true})
	Expect(err).NotTo(HaveOccurred())
	return prog
}

// singleSteps builds a program with one operation per source symbol, so no
// run is ever coalesced.
func singleSteps(src string) compiler.Program {
	var prog compiler.Program
	for _, r := range src {
		switch r {
		case '+':
			prog = append(prog, compiler.AddValue{Count: 1})
		case '-':
			prog = append(prog, compiler.SubValue{Count: 1})
		case '>':
			prog = append(prog, compiler.MoveForward{Count: 1})
		case '<':
			prog = append(prog, compiler.MoveBackward{Count: 1})
		}
	}
	return prog
}

var _ = Describe("Machine", func() {
	var (
		m   *machine.Machine
		out *bytes.Buffer
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		m = machine.NewMachine(strings.NewReader(""), out)
	})

	Context("Value operations", func() {
		It("should wrap on increment", func() {
			m.Tape[0] = 255
			Expect(m.Run(compiler.Program{compiler.AddValue{Count: 1}})).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(0)))
		})

		It("should wrap on decrement", func() {
			Expect(m.Run(compiler.Program{compiler.SubValue{Count: 1}})).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(255)))
		})

		It("should treat 256 increments as identity", func() {
			m.Tape[0] = 42
			Expect(m.Run(analyze(strings.Repeat("+", 256)))).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(42)))
		})

		It("should treat 257 increments as one", func() {
			Expect(m.Run(analyze(strings.Repeat("+", 257)))).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(1)))
		})
	})

	Context("Pointer movement", func() {
		It("should wrap backward past cell 0 and return", func() {
			Expect(m.Run(compiler.Program{compiler.MoveBackward{Count: 1}})).To(Succeed())
			Expect(m.Ptr).To(Equal(machine.TapeSize - 1))
			Expect(m.Run(compiler.Program{compiler.MoveForward{Count: 1}})).To(Succeed())
			Expect(m.Ptr).To(Equal(0))
		})

		It("should wrap forward from the last cell", func() {
			m.Ptr = machine.TapeSize - 1
			Expect(m.Run(compiler.Program{compiler.MoveForward{Count: 1}})).To(Succeed())
			Expect(m.Ptr).To(Equal(0))
		})

		It("should reduce moves longer than the tape", func() {
			Expect(m.Run(compiler.Program{compiler.MoveForward{Count: 2*machine.TapeSize + 5}})).To(Succeed())
			Expect(m.Ptr).To(Equal(5))
			Expect(m.Run(compiler.Program{compiler.MoveBackward{Count: 3*machine.TapeSize + 6}})).To(Succeed())
			Expect(m.Ptr).To(Equal(machine.TapeSize - 1))
		})
	})

	Context("Input and output", func() {
		It("should echo one input byte", func() {
			Expect(machine.Evaluate(analyze(",."), strings.NewReader("A"), out)).To(Succeed())
			Expect(out.String()).To(Equal("A"))
		})

		It("should read 0 from exhausted input", func() {
			Expect(machine.Evaluate(analyze(",."), strings.NewReader(""), out)).To(Succeed())
			Expect(out.Bytes()).To(Equal([]byte{0}))
		})

		It("should overwrite the cell with 0 at end of input", func() {
			m.Tape[0] = 9
			Expect(m.Run(analyze(","))).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(0)))
		})

		It("should consume exactly one byte per input", func() {
			Expect(machine.Evaluate(analyze(",>,>,<<.>.>."), strings.NewReader("xyz!"), out)).To(Succeed())
			Expect(out.String()).To(Equal("xyz"))
		})

		It("should read from readers without ReadByte", func() {
			in := io.MultiReader(strings.NewReader("h"), strings.NewReader("i"))
			Expect(machine.Evaluate(analyze(",.,.,."), in, out)).To(Succeed())
			Expect(out.Bytes()).To(Equal([]byte{'h', 'i', 0}))
		})

		It("should write raw byte values", func() {
			Expect(machine.Evaluate(analyze(strings.Repeat("+", 200)+"."), nil, out)).To(Succeed())
			Expect(out.Bytes()).To(Equal([]byte{200}))
		})

		It("should run without channels", func() {
			Expect(machine.Evaluate(analyze(",+.#"), nil, nil)).To(Succeed())
		})
	})

	Context("Loops", func() {
		It("should skip a loop on a zero cell", func() {
			Expect(m.Run(analyze("[.+]"))).To(Succeed())
			Expect(out.Len()).To(Equal(0))
			Expect(m.Tape[0]).To(Equal(byte(0)))
		})

		It("should repeat until the cell is zero", func() {
			Expect(m.Run(analyze("+++[>++<-]"))).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(0)))
			Expect(m.Tape[1]).To(Equal(byte(6)))
		})

		It("should print Hello World", func() {
			Expect(machine.Evaluate(analyze(helloWorld), nil, out)).To(Succeed())
			Expect(out.String()).To(Equal("Hello World!\n"))
		})

		It("should print Hello World without idiom rewrites", func() {
			prog, err := compiler.Analyze(helloWorld, compiler.Options{NoOptimize: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(machine.Evaluate(prog, nil, out)).To(Succeed())
			Expect(out.String()).To(Equal("Hello World!\n"))
		})
	})

	Context("Idioms", func() {
		It("should reset any nonzero cell", func() {
			prog := analyze("[-]")
			Expect(prog).To(Equal(compiler.Program{compiler.ResetToZero{}}))
			for _, v := range []byte{1, 7, 128, 255} {
				m.Tape[0] = v
				Expect(m.Run(prog)).To(Succeed())
				Expect(m.Tape[0]).To(Equal(byte(0)))
			}
		})

		It("should transfer 5 onto 3", func() {
			m.Tape[0] = 5
			m.Tape[1] = 3
			Expect(m.Run(analyze("[->+<]"))).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(0)))
			Expect(m.Tape[1]).To(Equal(byte(8)))
			Expect(m.Ptr).To(Equal(0))
		})

		It("should multiply modulo 256", func() {
			m.Tape[0] = 100
			Expect(m.Run(compiler.Program{compiler.TransferMultiply{Offset: 2, Factor: 3}})).To(Succeed())
			Expect(m.Tape[2]).To(Equal(byte(44)))
			Expect(m.Tape[0]).To(Equal(byte(0)))
		})

		It("should wrap negative offsets", func() {
			m.Tape[0] = 4
			m.Tape[machine.TapeSize-2] = 1
			Expect(m.Run(compiler.Program{compiler.TransferMultiply{Offset: -2, Factor: 2}})).To(Succeed())
			Expect(m.Tape[machine.TapeSize-2]).To(Equal(byte(9)))
			Expect(m.Tape[0]).To(Equal(byte(0)))
		})

		It("should leave other cells alone for offset 0", func() {
			m.Ptr = 1
			m.Tape[1] = 7
			Expect(m.Run(compiler.Program{compiler.TransferMultiply{Offset: 0, Factor: 3}})).To(Succeed())
			Expect(m.Tape[0]).To(Equal(byte(0)))
			Expect(m.Tape[1]).To(Equal(byte(0)))
			Expect(m.Tape[2]).To(Equal(byte(0)))
		})

		It("should match the plain loop it replaces", func() {
			src := "+++++++[->>+++<<]>>[-<+>]<.[<++>-]<."
			plain, err := compiler.Analyze(src, compiler.Options{NoOptimize: true})
			Expect(err).NotTo(HaveOccurred())

			var want bytes.Buffer
			Expect(machine.Evaluate(plain, nil, &want)).To(Succeed())
			Expect(machine.Evaluate(analyze(src), nil, out)).To(Succeed())
			Expect(out.Bytes()).To(Equal(want.Bytes()))
		})
	})

	Context("Run-length coalescing", func() {
		It("should match symbol-by-symbol execution", func() {
			rng := rand.New(rand.NewSource(1))
			symbols := []byte("+-<>")
			for i := 0; i < 200; i++ {
				src := make([]byte, rng.Intn(600))
				for j := range src {
					// long runs are what coalescing is for
					if j > 0 && rng.Intn(4) != 0 {
						src[j] = src[j-1]
						continue
					}
					src[j] = symbols[rng.Intn(len(symbols))]
				}

				coalesced := machine.NewMachine(nil, nil)
				Expect(coalesced.Run(analyze(string(src)))).To(Succeed())
				stepped := machine.NewMachine(nil, nil)
				Expect(stepped.Run(singleSteps(string(src)))).To(Succeed())

				Expect(coalesced.Ptr).To(Equal(stepped.Ptr), "source %q", src)
				Expect(coalesced.Tape == stepped.Tape).To(BeTrue(), "source %q", src)
			}
		})
	})

	Context("Debug dump", func() {
		It("should print up to three trailing zeros", func() {
			Expect(m.Run(analyze("+>++>>>>>+++#"))).To(Succeed())
			Expect(out.String()).To(Equal("\n[1, 2, 0, 0, 0]\n"))
		})

		It("should print an empty tape", func() {
			Expect(m.Run(analyze("#"))).To(Succeed())
			Expect(out.String()).To(Equal("\n[0, 0, 0]\n"))
		})
	})

	Context("State", func() {
		It("should keep the tape between runs", func() {
			Expect(m.Run(analyze("+++>"))).To(Succeed())
			Expect(m.Run(analyze("++<."))).To(Succeed())
			Expect(out.Bytes()).To(Equal([]byte{3}))
			Expect(m.Tape[1]).To(Equal(byte(2)))
			Expect(m.Steps).To(Equal(uint64(5)))
		})

		It("should clear on reset", func() {
			Expect(m.Run(analyze("+++>+"))).To(Succeed())
			m.Reset()
			Expect(m.Ptr).To(Equal(0))
			Expect(m.Tape[0]).To(Equal(byte(0)))
			Expect(m.Tape[1]).To(Equal(byte(0)))
			Expect(m.Steps).To(BeZero())
		})

		It("should log a debug record per run", func() {
			var logs bytes.Buffer
			m.Logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			Expect(m.Run(analyze("++[-]"))).To(Succeed())
			Expect(logs.String()).To(ContainSubstring("run finished"))
			Expect(logs.String()).To(ContainSubstring("steps=2"))
		})
	})

	Context("I/O failures", func() {
		var (
			mockCtrl *gomock.Controller
			writer   *MockWriter
			reader   *MockReader
			errPipe  = errors.New("broken pipe")
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			writer = NewMockWriter(mockCtrl)
			reader = NewMockReader(mockCtrl)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should abort on the first failed write", func() {
			writer.EXPECT().
				Write([]byte{1}).
				Return(0, errPipe).
				Times(1)

			m = machine.NewMachine(nil, writer)
			err := m.Run(analyze("+.+."))

			Expect(errors.Is(err, machine.ErrIO)).To(BeTrue())
			Expect(errors.Is(err, errPipe)).To(BeTrue())
			var rerr *machine.RuntimeError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Op).To(Equal(compiler.Op(compiler.Output{})))
			Expect(m.Tape[0]).To(Equal(byte(1)))
		})

		It("should abort a loop that would never end", func() {
			writer.EXPECT().
				Write(gomock.Any()).
				Return(1, nil).
				Times(2)
			writer.EXPECT().
				Write(gomock.Any()).
				Return(0, errPipe)

			m = machine.NewMachine(nil, writer)
			Expect(m.Run(analyze("+[.]"))).To(MatchError(errPipe))
		})

		It("should fail a broken dump", func() {
			writer.EXPECT().
				Write(gomock.Any()).
				Return(0, errPipe)

			m = machine.NewMachine(nil, writer)
			Expect(errors.Is(m.Run(analyze("#")), machine.ErrIO)).To(BeTrue())
		})

		It("should report read errors other than end of input", func() {
			reader.EXPECT().
				Read(gomock.Any()).
				Return(0, errPipe)

			m = machine.NewMachine(reader, out)
			err := m.Run(analyze(",."))
			Expect(errors.Is(err, machine.ErrIO)).To(BeTrue())
			Expect(out.Len()).To(Equal(0))
		})

		It("should read 0 when the reader reports end of input", func() {
			reader.EXPECT().
				Read(gomock.Any()).
				Return(0, io.EOF)

			m = machine.NewMachine(reader, out)
			m.Tape[0] = 5
			Expect(m.Run(analyze(",."))).To(Succeed())
			Expect(out.Bytes()).To(Equal([]byte{0}))
		})
	})
})
