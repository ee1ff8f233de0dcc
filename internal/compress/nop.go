package compress

import "io"

// Nop stores snapshots as plain JSON.
type Nop struct{}

func NewNop() Nop {
	return Nop{}
}

func (Nop) Name() string {
	return CodecNop
}

func (Nop) Encode(data []byte) ([]byte, error) {
	return data, nil
}

// Decode only checks that the payload is present; an empty plain snapshot is never written.
func (Nop) Decode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, corrupt(CodecNop, io.ErrUnexpectedEOF)
	}

	return data, nil
}
