package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nicwaller/gelf"
	"github.com/nicwaller/gelf/codec"
	"github.com/nicwaller/gelf/filter"
	"github.com/spf13/cobra"
)

var sendFlags struct {
	conn   connFlags
	level  string
	logger string
	json   bool
	kv     bool
}

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send messages from the arguments or from stdin, one per line",
	Args:  cobra.ArbitraryArgs,
	RunE:  runSend,
}

func init() {
	sendFlags.conn.register(sendCmd)
	f := sendCmd.Flags()
	f.StringVarP(&sendFlags.level, "level", "l", "info", "level of every message")
	f.StringVar(&sendFlags.logger, "logger", "gelfcat", "logger name, sent as facility")
	f.BoolVar(&sendFlags.json, "json", false, "parse each line as a JSON object of extra fields")
	f.BoolVar(&sendFlags.kv, "kv", false, "parse key=value pairs from each line as extra fields")
}

func runSend(cmd *cobra.Command, args []string) error {
	level, ok := gelf.ParseLevel(sendFlags.level)
	if !ok {
		return fmt.Errorf("unknown level %q", sendFlags.level)
	}
	cfg, err := sendFlags.conn.load(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := cfg.NewPipeline(ctx, "gelfcat")
	if err != nil {
		return err
	}
	if sendFlags.json {
		p.Filter("json", filter.Json("line"))
	}
	p.Start(ctx)

	logger := slog.New(gelf.NewHandler(p, &gelf.HandlerOptions{
		Level:  slog.LevelDebug,
		Logger: sendFlags.logger,
	}))

	send := func(line string) {
		var attrs []slog.Attr
		switch {
		case sendFlags.json:
			attrs = append(attrs, slog.String("line", line))
		case sendFlags.kv:
			codec.KvDecode([]byte(line)).Range(func(key string, v gelf.Value) bool {
				attrs = append(attrs, slog.Any(key, v))
				return true
			})
		}
		logger.LogAttrs(ctx, level.Slog(), line, attrs...)
	}

	if len(args) > 0 {
		send(strings.Join(args, " "))
	} else {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() && ctx.Err() == nil {
			if line := scanner.Text(); strings.TrimSpace(line) != "" {
				send(line)
			}
		}
		if err := scanner.Err(); err != nil {
			slog.Error("reading stdin failed", "error", err)
		}
	}

	stopErr := p.Stop()
	slog.Debug("done", "stats", p.Stats().Summary())
	return stopErr
}
