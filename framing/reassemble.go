package framing

import (
	"errors"
	"fmt"
	"sort"
)

var ErrIncomplete = errors.New("incomplete chunk set")

// Reassemble joins the chunks of one message the way a receiver would.
// Chunks may arrive in any order but must share an id and total and cover
// every sequence number exactly once.
func Reassemble(chunks []Chunk) ([]byte, error) {
	if len(chunks) == 0 {
		return nil, ErrIncomplete
	}
	sorted := append([]Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	id, total := sorted[0].ID, sorted[0].Total
	if int(total) != len(sorted) {
		return nil, fmt.Errorf("%w: have %d of %d", ErrIncomplete, len(sorted), total)
	}
	size := 0
	for i, c := range sorted {
		if c.ID != id {
			return nil, fmt.Errorf("chunk %d belongs to another message", c.Seq)
		}
		if c.Total != total {
			return nil, fmt.Errorf("chunk %d disagrees on total: %d != %d", c.Seq, c.Total, total)
		}
		if int(c.Seq) != i {
			return nil, fmt.Errorf("%w: missing sequence %d", ErrIncomplete, i)
		}
		size += len(c.Data)
	}
	out := make([]byte, 0, size)
	for _, c := range sorted {
		out = append(out, c.Data...)
	}
	return out, nil
}

// ReassembleDatagrams accepts what a Chunker produced: either one plain
// payload or a full set of chunk frames.
func ReassembleDatagrams(datagrams [][]byte) ([]byte, error) {
	if len(datagrams) == 1 && !IsChunk(datagrams[0]) {
		return datagrams[0], nil
	}
	chunks := make([]Chunk, 0, len(datagrams))
	for _, d := range datagrams {
		c, err := ParseChunk(d)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return Reassemble(chunks)
}
