package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// GZip is the default snapshot codec.
type GZip struct {
	level int
}

func NewGZip() GZip {
	return GZip{level: gzip.BestSpeed}
}

func (g GZip) Name() string {
	return CodecGZip
}

func (g GZip) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, g.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("gzip snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip snapshot: %w", err)
	}

	return buf.Bytes(), nil
}

func (g GZip) Decode(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, corrupt(CodecGZip, err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, corrupt(CodecGZip, err)
	}

	return out, nil
}
