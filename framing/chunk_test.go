package framing

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFiveBytesIntoTwos(t *testing.T) {
	chunks := Split([]byte("12345"), 2)
	require.Len(t, chunks, 3)

	expected := []string{"12", "34", "5"}
	for i, c := range chunks {
		assert.Equal(t, uint8(i), c.Seq)
		assert.Equal(t, uint8(3), c.Total)
		assert.Equal(t, expected[i], string(c.Data))
		assert.Equal(t, chunks[0].ID, c.ID)
	}
}

func TestSplitEdgeCases(t *testing.T) {
	assert.Nil(t, Split(nil, 10))

	one := Split([]byte("abc"), 10)
	require.Len(t, one, 1)
	assert.Equal(t, uint8(1), one[0].Total)
	assert.Equal(t, "abc", string(one[0].Data))

	exact := Split(bytes.Repeat([]byte("x"), 20), 10)
	assert.Len(t, exact, 2)
}

func TestChunkCountBounds(t *testing.T) {
	assert.Equal(t, 0, ChunkCount(0, 10))
	assert.Equal(t, 0, ChunkCount(10, 0))
	assert.Equal(t, 0, ChunkCount(10, -1))
	assert.Equal(t, 1, ChunkCount(5, math.MaxInt))
	assert.Equal(t, 2, ChunkCount(math.MaxInt, math.MaxInt-1))

	assert.Nil(t, Split([]byte("abc"), 0))
	assert.Nil(t, Split([]byte("abc"), -5))
}

func TestSplitTotalFitsHeader(t *testing.T) {
	full := Split(make([]byte, 255), 1)
	require.Len(t, full, 255)
	assert.Equal(t, uint8(255), full[254].Total)
	assert.Equal(t, uint8(254), full[254].Seq)

	assert.Nil(t, Split(make([]byte, 256), 1))
	assert.Nil(t, Split(make([]byte, 1000), 1))
}

func TestChunkFrameLayout(t *testing.T) {
	c := Chunk{ID: MessageID{1, 2, 3, 4, 5, 6, 7, 8}, Seq: 2, Total: 5, Data: []byte("hi")}
	b := c.Bytes()
	assert.Equal(t, []byte{0x1e, 0x0f, 1, 2, 3, 4, 5, 6, 7, 8, 2, 5, 'h', 'i'}, b)

	parsed, err := ParseChunk(b)
	require.NoError(t, err)
	assert.Equal(t, c, parsed)
}

func TestParseChunkRejects(t *testing.T) {
	_, err := ParseChunk([]byte("{\"short_message\":\"x\"}"))
	assert.ErrorIs(t, err, ErrNotChunk)

	bad := Chunk{Seq: 3, Total: 3, Data: []byte("x")}.Bytes()
	_, err = ParseChunk(bad)
	assert.ErrorIs(t, err, ErrBadSequence)
}

func TestMessageIDsDiffer(t *testing.T) {
	a := Split([]byte("aaaa"), 2)
	b := Split([]byte("aaaa"), 2)
	assert.NotEqual(t, a[0].ID, b[0].ID)
}

func TestSplitRoundTrip(t *testing.T) {
	payload := make([]byte, 10_000)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	for _, size := range []int{1, 7, 100, WANChunkSize, LANChunkSize} {
		chunks := Split(payload, size)
		if len(chunks) > MaxChunks {
			continue
		}
		out, err := Reassemble(chunks)
		require.NoError(t, err)
		assert.Equal(t, payload, out, "size %d", size)
	}
}

func TestChunkerDatagrams(t *testing.T) {
	c := NewChunker(10, Drop(), nil, false)

	small := c.Datagrams([]byte("tiny"))
	require.Len(t, small, 1)
	assert.Equal(t, "tiny", string(small[0]))

	payload := bytes.Repeat([]byte("z"), 95)
	frames := c.Datagrams(payload)
	require.Len(t, frames, 10)
	for _, f := range frames {
		assert.True(t, IsChunk(f))
		assert.LessOrEqual(t, len(f), HeaderSize+10)
	}
	out, err := ReassembleDatagrams(frames)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestChunkerNeverExceedsMaxChunks(t *testing.T) {
	c := NewChunker(2, Drop(), nil, false)
	for _, n := range []int{255, 256, 257, 1000} {
		frames := c.Datagrams(bytes.Repeat([]byte("q"), n))
		assert.LessOrEqual(t, len(frames), MaxChunks, "payload %d", n)
	}
	assert.Len(t, c.Datagrams(bytes.Repeat([]byte("q"), 256)), MaxChunks)
	assert.Empty(t, c.Datagrams(bytes.Repeat([]byte("q"), 257)))
}

func TestReassembleOutOfOrder(t *testing.T) {
	chunks := Split([]byte("abcdefg"), 3)
	chunks[0], chunks[2] = chunks[2], chunks[0]
	out, err := Reassemble(chunks)
	require.NoError(t, err)
	assert.Equal(t, "abcdefg", string(out))
}

func TestReassembleIncomplete(t *testing.T) {
	chunks := Split([]byte("abcdefg"), 3)
	_, err := Reassemble(chunks[:2])
	assert.ErrorIs(t, err, ErrIncomplete)

	other := Split([]byte("abcdefg"), 3)
	chunks[1] = other[1]
	_, err = Reassemble(chunks)
	assert.Error(t, err)
}
