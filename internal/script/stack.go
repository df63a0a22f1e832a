package script

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxFrameSize bounds a stack frame read from an untrusted stream.
const maxFrameSize = 1 << 16

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("script: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// WriteStack writes the execution state as a length-prefixed CBOR frame.
func (s *Script) WriteStack(w io.Writer) error {
	data, err := cborEncMode.Marshal(s.st)
	if err != nil {
		return fmt.Errorf("script: marshal stack: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return fmt.Errorf("script: write stack header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("script: write stack: %w", err)
	}
	return nil
}

// ReadStack restores an execution state written by WriteStack. The source
// must compile and the saved position must lie inside the program.
func (s *Script) ReadStack(r io.Reader) error {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return fmt.Errorf("script: read stack header: %w", err)
	}
	if size > maxFrameSize {
		return fmt.Errorf("script: stack frame of %d bytes exceeds limit", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("script: read stack: %w", err)
	}

	var st state
	if err := cbor.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("script: unmarshal stack: %w", err)
	}
	if err := s.Compile(); err != nil {
		return fmt.Errorf("%w: %v", ErrNotCompiled, err)
	}
	if st.PC < 0 || st.PC > len(s.prog) {
		return fmt.Errorf("script: stack position %d outside program of %d instructions", st.PC, len(s.prog))
	}
	s.st = st
	return nil
}
