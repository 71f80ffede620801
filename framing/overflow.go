package framing

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/metrics"
)

// OverflowPolicy decides what happens to a payload that would need more
// than MaxChunks chunks. Whatever it returns must not exceed MaxChunks.
type OverflowPolicy interface {
	Name() string
	HandleOverflow(payload []byte, size int, compress bool, enc gelf.Encoder) []Chunk
}

const (
	OverflowDrop     = "drop"
	OverflowWarn     = "warn"
	OverflowTruncate = "truncate"
)

// ParseOverflow looks a policy up by name.
func ParseOverflow(name string) (OverflowPolicy, bool) {
	switch strings.ToLower(name) {
	case OverflowDrop, "":
		return Drop(), true
	case OverflowWarn:
		return Warn(nil), true
	case OverflowTruncate:
		return Truncate(nil), true
	}
	return nil, false
}

// Drop discards oversized payloads silently.
func Drop() OverflowPolicy {
	return dropPolicy{}
}

type dropPolicy struct{}

func (dropPolicy) Name() string { return OverflowDrop }

func (dropPolicy) HandleOverflow([]byte, int, bool, gelf.Encoder) []Chunk {
	metrics.IncOverflow(OverflowDrop, "dropped")
	return nil
}

// Warn discards oversized payloads and logs one diagnostic for each.
// A nil logger means the default diagnostics logger.
func Warn(log *slog.Logger) OverflowPolicy {
	return warnPolicy{log: log}
}

type warnPolicy struct {
	log *slog.Logger
}

func (warnPolicy) Name() string { return OverflowWarn }

func (p warnPolicy) HandleOverflow(payload []byte, size int, _ bool, _ gelf.Encoder) []Chunk {
	log := diagnostics(p.log)
	log.Warn("dropping GELF message that needs too many chunks",
		"bytes", len(payload),
		"chunks", ChunkCount(len(payload), size),
		"max", MaxChunks,
		"preview", preview(payload))
	metrics.IncOverflow(OverflowWarn, "dropped")
	return nil
}

// Truncate replaces an oversized message with a skeleton carrying the
// longest prefix of short_message that fits, flagged _chunk_overflow.
// Everything except version, host, timestamp and facility is dropped and
// level becomes 3 (error).
func Truncate(log *slog.Logger) OverflowPolicy {
	return truncatePolicy{log: log}
}

type truncatePolicy struct {
	log *slog.Logger
}

func (truncatePolicy) Name() string { return OverflowTruncate }

func (p truncatePolicy) HandleOverflow(payload []byte, size int, compress bool, enc gelf.Encoder) []Chunk {
	log := diagnostics(p.log)
	if enc == nil {
		log.Warn("cannot truncate GELF message without an encoder")
		metrics.IncOverflow(OverflowTruncate, "failed")
		return nil
	}
	orig, err := enc.Decode(payload)
	if err != nil {
		log.Warn("cannot truncate GELF message", "error", err)
		metrics.IncOverflow(OverflowTruncate, "failed")
		return nil
	}

	skeleton := gelf.NewMessage()
	for _, key := range []string{gelf.FieldVersion, gelf.FieldHost, gelf.FieldShortMessage, gelf.FieldTimestamp} {
		if v, ok := orig.Get(key); ok {
			skeleton.Set(key, v)
		}
	}
	skeleton.Set(gelf.FieldShortMessage, gelf.StringValue(""))
	skeleton.Set(gelf.FieldLevel, gelf.IntValue(int64(gelf.LevelError.Syslog())))
	for _, key := range []string{gelf.FieldFacility, "_" + gelf.FieldFacility} {
		if v, ok := orig.Get(key); ok {
			skeleton.Set(key, v)
		}
	}
	skeleton.Set(gelf.FieldChunkOverflow, gelf.BoolValue(true))

	fits := func(text string) ([]byte, bool) {
		skeleton.Set(gelf.FieldShortMessage, gelf.StringValue(text))
		encoded := enc.Encode(skeleton, compress)
		return encoded, ChunkCount(len(encoded), size) <= MaxChunks
	}

	best, ok := fits("")
	if !ok {
		log.Warn("dropping GELF message: even the truncated skeleton needs too many chunks",
			"bytes", len(best),
			"max", MaxChunks)
		metrics.IncOverflow(OverflowTruncate, "failed")
		return nil
	}

	text := orig.ShortMessage()
	hi := len(text)
	if !compress {
		hi = min(hi, MaxChunks*size)
	}
	lo := 1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		prefix := runePrefix(text, mid)
		if encoded, ok := fits(prefix); ok {
			best = encoded
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	log.Warn("truncated GELF message that needed too many chunks",
		"bytes", len(payload),
		"chunks", ChunkCount(len(payload), size),
		"truncatedBytes", len(best))
	metrics.IncOverflow(OverflowTruncate, "truncated")
	return Split(best, size)
}

const previewLen = 80

// diagnostics tags log so that a Handler behind it never forwards the
// record into a pipeline.
func diagnostics(log *slog.Logger) *slog.Logger {
	if log == nil {
		return gelf.Diagnostics(context.Background())
	}
	return log.With(gelf.DiagnosticKey, gelf.DiagnosticLogger)
}

func preview(payload []byte) string {
	if c := Detect(payload); c != CompressionNone {
		plain, err := Decompress(payload)
		if err != nil {
			return "(" + c.String() + ")"
		}
		payload = plain
	}
	return runePrefix(string(payload), previewLen)
}

// runePrefix cuts s to at most n bytes without splitting a UTF-8 sequence.
func runePrefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
