package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressors(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"status":"Published","languages":{"fi":"Published"}}`), 20)

	for _, name := range []string{"nop", "gzip", "brotli", "lz4"} {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			require.NoError(t, err)
			assert.Equal(t, name, c.Name())

			encoded, err := c.Encode(payload)
			require.NoError(t, err)
			if name != "nop" {
				assert.Less(t, len(encoded), len(payload))
			}

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("zstd")
	assert.Error(t, err)
}

func TestDecode_Corrupt(t *testing.T) {
	for _, name := range []string{CodecNop, CodecGZip, CodecBrotli, CodecLZ4} {
		t.Run(name, func(t *testing.T) {
			c, err := New(name)
			require.NoError(t, err)

			var payload []byte
			if name != CodecNop {
				payload = []byte("not a snapshot")
			}
			_, err = c.Decode(payload)
			assert.ErrorIs(t, err, ErrCorruptSnapshot)
		})
	}
}
