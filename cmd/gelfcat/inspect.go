package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/framing"
	"github.com/spf13/cobra"
)

var chunkSize int

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Decode a GELF payload and show how it would be chunked",
	Long: `Decode a GELF payload (plain, zlib or gzip) read from a file or stdin,
print its fields as YAML, and show the chunk headers a UDP sender would
use for it at the given chunk size.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().IntVarP(&chunkSize, "chunk-size", "s", framing.WANChunkSize, "UDP chunk size")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if chunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	var (
		payload []byte
		err     error
	)
	if len(args) == 1 {
		payload, err = os.ReadFile(args[0])
	} else {
		payload, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	msg, err := codec.Gelf().Decode(payload)
	if err != nil {
		return err
	}
	view, err := codec.Yaml(msg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "# %d bytes, compression: %s\n", len(payload), framing.Detect(payload))
	_, _ = out.Write(view)

	n := framing.ChunkCount(len(payload), chunkSize)
	switch {
	case len(payload) <= chunkSize:
		_, _ = fmt.Fprintf(out, "# fits in one datagram at chunk size %d\n", chunkSize)
		return nil
	case n > framing.MaxChunks:
		_, _ = fmt.Fprintf(out, "# needs %d chunks at size %d, more than %d: overflow policy applies\n",
			n, chunkSize, framing.MaxChunks)
		return nil
	}
	_, _ = fmt.Fprintf(out, "# %d chunks at size %d\n", n, chunkSize)
	for _, c := range framing.Split(payload, chunkSize) {
		_, _ = fmt.Fprintf(out, "#   id=%x seq=%d total=%d bytes=%d\n", c.ID, c.Seq, c.Total, len(c.Data))
	}
	return nil
}
