package framing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	data := []byte(`{"short_message":"hello"}`)
	assert.Equal(t, CompressionNone, Detect(data))
	assert.Equal(t, CompressionZlib, Detect(Zlib(data)))
	assert.Equal(t, CompressionGzip, Detect(Gzip(data)))
	assert.Equal(t, CompressionNone, Detect(nil))
}

func TestDecompress(t *testing.T) {
	data := bytes.Repeat([]byte("compress me "), 100)
	for _, compressed := range [][]byte{Zlib(data), Gzip(data), data} {
		out, err := Decompress(compressed)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	}
}

func TestDecompressCorrupt(t *testing.T) {
	broken := Zlib([]byte("hello world"))
	broken = broken[:len(broken)-6]
	_, err := Decompress(broken)
	assert.Error(t, err)
}
