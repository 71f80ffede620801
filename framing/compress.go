package framing

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Zlib compresses data with the zlib stream format GELF receivers expect.
func Zlib(data []byte) []byte {
	var buf bytes.Buffer
	w, _ := zlib.NewWriterLevel(&buf, zlib.DefaultCompression)
	// writes to a bytes.Buffer cannot fail
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

func Gzip(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, _ = w.Write(data)
	_ = w.Close()
	return buf.Bytes()
}

type Compression int

const (
	CompressionNone Compression = iota
	CompressionZlib
	CompressionGzip
)

func (c Compression) String() string {
	switch c {
	case CompressionZlib:
		return "zlib"
	case CompressionGzip:
		return "gzip"
	default:
		return "none"
	}
}

// Detect sniffs the compression of a payload from its leading bytes.
func Detect(data []byte) Compression {
	if len(data) >= 2 {
		if data[0] == 0x1f && data[1] == 0x8b {
			return CompressionGzip
		}
		// zlib: CM=8 and the header checksum holds
		if data[0]&0x0f == 8 && (uint16(data[0])<<8|uint16(data[1]))%31 == 0 {
			return CompressionZlib
		}
	}
	return CompressionNone
}

// Decompress undoes whatever Detect finds; plain payloads come back as-is.
func Decompress(data []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch c := Detect(data); c {
	case CompressionZlib:
		r, err = zlib.NewReader(bytes.NewReader(data))
	case CompressionGzip:
		r, err = gzip.NewReader(bytes.NewReader(data))
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed payload: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}
