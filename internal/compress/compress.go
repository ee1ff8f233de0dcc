// Package compress holds the codecs used for history snapshots. The codec name is stored
// next to every snapshot so entries written with one codec stay readable after the
// configured codec changes.
package compress

import (
	"errors"
	"fmt"
)

// Codec names as recorded in history_meta_data.compression.
const (
	CodecNop    = "nop"
	CodecGZip   = "gzip"
	CodecBrotli = "brotli"
	CodecLZ4    = "lz4"
)

var ErrCorruptSnapshot = errors.New("corrupt snapshot payload")

// Compress encodes and decodes payloads stored in the database.
type Compress interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// New returns the codec registered under name. An empty name selects Nop, which is how
// entries written without compression are recorded.
func New(name string) (Compress, error) {
	switch name {
	case "", CodecNop:
		return NewNop(), nil
	case CodecGZip:
		return NewGZip(), nil
	case CodecBrotli:
		return NewBrotli(), nil
	case CodecLZ4:
		return NewLZ4(), nil
	}

	return nil, fmt.Errorf("unknown snapshot codec %q", name)
}

func corrupt(codec string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCorruptSnapshot, codec, err)
}
