package machine

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// snapshotState is the JSON-serializable part of a machine snapshot.
type snapshotState struct {
	Ptr      int       `json:"ptr"`
	TapeSize int       `json:"tape_size"`
	Steps    uint64    `json:"steps"`
	Taken    time.Time `json:"taken"`
}

// SnapshotToBytes serialises the tape and pointer into an in-memory ZIP
// archive and returns the raw bytes.
func (m *Machine) SnapshotToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := snapshotState{
		Ptr:      m.Ptr,
		TapeSize: TapeSize,
		Steps:    m.Steps,
		Taken:    time.Now().UTC(),
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal machine_state: %w", err)
	}
	if err := writeZipEntry(zw, "machine_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "tape.bin", m.Tape[:]); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes applies a snapshot produced by SnapshotToBytes. The
// machine's I/O channels are left untouched.
func (m *Machine) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "machine_state.json")
	if err != nil {
		return err
	}
	var state snapshotState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal machine_state: %w", err)
	}
	if state.TapeSize != TapeSize {
		return fmt.Errorf("snapshot tape size %d, want %d", state.TapeSize, TapeSize)
	}
	if state.Ptr < 0 || state.Ptr >= TapeSize {
		return fmt.Errorf("snapshot pointer %d out of range", state.Ptr)
	}

	tape, err := readZipEntry(fileMap, "tape.bin")
	if err != nil {
		return err
	}
	if len(tape) != TapeSize {
		return fmt.Errorf("snapshot tape.bin has %d bytes, want %d", len(tape), TapeSize)
	}

	copy(m.Tape[:], tape)
	m.Ptr = state.Ptr
	m.Steps = state.Steps
	return nil
}

// SnapshotToFile writes the snapshot archive to the given file path.
func (m *Machine) SnapshotToFile(path string) error {
	data, err := m.SnapshotToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a snapshot archive from the given file path.
func (m *Machine) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
