package framing

import (
	"bytes"
)

// NullTerminated frames a payload for GELF over TCP. Compressed payloads
// may contain 0x00 and so cannot be framed this way.
func NullTerminated(payload []byte) []byte {
	framed := make([]byte, len(payload)+1)
	copy(framed, payload)
	return framed
}

// ScanNull is a bufio.SplitFunc that cuts a stream at each 0x00.
func ScanNull(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	// request more data
	return 0, nil, nil
}
