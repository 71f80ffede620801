package framing

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/nicwaller/gelf"
)

const (
	// MaxChunks is the most chunks a receiver will reassemble.
	MaxChunks = 128

	WANChunkSize = 1420
	LANChunkSize = 8154

	// HeaderSize is magic(2) + message id(8) + sequence(1) + total(1).
	HeaderSize = 12
)

var Magic = [2]byte{0x1e, 0x0f}

var (
	ErrNotChunk    = errors.New("not a GELF chunk")
	ErrBadSequence = errors.New("chunk sequence out of range")
)

type MessageID [8]byte

// NewMessageID returns random bytes; receivers treat the id as opaque.
func NewMessageID() MessageID {
	var id MessageID
	_, _ = rand.Read(id[:])
	return id
}

type Chunk struct {
	ID    MessageID
	Seq   uint8
	Total uint8
	Data  []byte
}

// Bytes is the datagram for this chunk.
func (c Chunk) Bytes() []byte {
	b := make([]byte, 0, HeaderSize+len(c.Data))
	b = append(b, Magic[:]...)
	b = append(b, c.ID[:]...)
	b = append(b, c.Seq, c.Total)
	return append(b, c.Data...)
}

// IsChunk reports whether a datagram starts with the chunk magic.
func IsChunk(b []byte) bool {
	return len(b) >= 2 && b[0] == Magic[0] && b[1] == Magic[1]
}

func ParseChunk(b []byte) (Chunk, error) {
	if len(b) < HeaderSize || !IsChunk(b) {
		return Chunk{}, ErrNotChunk
	}
	var c Chunk
	copy(c.ID[:], b[2:10])
	c.Seq, c.Total = b[10], b[11]
	if c.Total == 0 || c.Total > MaxChunks || c.Seq >= c.Total {
		return Chunk{}, fmt.Errorf("%w: %d of %d", ErrBadSequence, c.Seq, c.Total)
	}
	c.Data = b[HeaderSize:]
	return c, nil
}

// maxTotal is the largest count the one-byte total field can hold.
const maxTotal = 255

// ChunkCount is how many chunks of size data bytes a payload needs. It is
// 0 for an empty payload or a size below 1.
func ChunkCount(payloadLen, size int) int {
	if payloadLen <= 0 || size <= 0 {
		return 0
	}
	n := payloadLen / size
	if payloadLen%size != 0 {
		n++
	}
	return n
}

// Split cuts payload into ceil(len/size) chunks sharing one random id.
// It does not enforce MaxChunks (see Chunker) but returns nil when the
// count would not fit the header's total byte, or when size is below 1.
func Split(payload []byte, size int) []Chunk {
	n := ChunkCount(len(payload), size)
	if n == 0 || n > maxTotal {
		return nil
	}
	id := NewMessageID()
	chunks := make([]Chunk, 0, n)
	for seq := 0; seq < n; seq++ {
		end := min((seq+1)*size, len(payload))
		chunks = append(chunks, Chunk{
			ID:    id,
			Seq:   uint8(seq),
			Total: uint8(n),
			Data:  payload[seq*size : end],
		})
	}
	return chunks
}

// Chunker turns one encoded payload into the datagrams to send.
type Chunker struct {
	Size     int
	Overflow OverflowPolicy
	// Compress and Encoder are handed to the overflow policy, which may need
	// to re-encode a smaller message.
	Compress bool
	Encoder  gelf.Encoder
}

func NewChunker(size int, overflow OverflowPolicy, enc gelf.Encoder, compress bool) *Chunker {
	if size <= 0 {
		size = WANChunkSize
	}
	if overflow == nil {
		overflow = Drop()
	}
	return &Chunker{Size: size, Overflow: overflow, Compress: compress, Encoder: enc}
}

// Chunk splits payload, handing it to the overflow policy instead when it
// would need more than MaxChunks chunks.
func (c *Chunker) Chunk(payload []byte) []Chunk {
	if ChunkCount(len(payload), c.Size) > MaxChunks {
		return c.Overflow.HandleOverflow(payload, c.Size, c.Compress, c.Encoder)
	}
	return Split(payload, c.Size)
}

// Datagrams returns the payload itself when it fits in one datagram and
// otherwise the chunk frames, which may be none at all.
func (c *Chunker) Datagrams(payload []byte) [][]byte {
	if len(payload) <= c.Size {
		return [][]byte{payload}
	}
	return gelf.Map(func(ch Chunk) []byte { return ch.Bytes() }, c.Chunk(payload))
}
