package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nicwaller/gelf"
	"github.com/spf13/cobra"
)

type heartbeatOptions struct {
	Interval time.Duration
	// Count stops after this many heartbeats; zero means run until cancelled.
	Count int
}

var heartbeatFlags struct {
	conn connFlags
	opts heartbeatOptions
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Send a heartbeat message at a fixed interval",
	Long: `Send a small "heartbeat" message at a fixed interval, to check that a
GELF input is reachable and to watch delivery latency. Each message carries
a sequence number and the duration of the previous delivery.`,
	Args: cobra.NoArgs,
	RunE: runHeartbeat,
}

func init() {
	heartbeatFlags.conn.register(heartbeatCmd)
	f := heartbeatCmd.Flags()
	f.DurationVarP(&heartbeatFlags.opts.Interval, "interval", "i", 10*time.Second, "time between heartbeats (at least 1s)")
	f.IntVarP(&heartbeatFlags.opts.Count, "count", "n", 0, "stop after this many heartbeats")
	rootCmd.AddCommand(heartbeatCmd)
}

func runHeartbeat(cmd *cobra.Command, args []string) error {
	cfg, err := heartbeatFlags.conn.load(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := cfg.NewPipeline(ctx, "heartbeat")
	if err != nil {
		return err
	}
	defer p.Close()

	opts := heartbeatFlags.opts
	if opts.Interval < time.Second {
		opts.Interval = time.Second
	}
	heartbeat(ctx, p, opts)
	slog.Debug("stopped heartbeat", "stats", p.Stats().Summary())
	return nil
}

// heartbeat delivers synchronously so that a slow input shows up as a
// longer duration on the next heartbeat. Failures are logged and the
// heartbeat carries on.
func heartbeat(ctx context.Context, p *gelf.Pipeline, opts heartbeatOptions) {
	log := gelf.ContextLogger(context.WithValue(ctx, gelf.ContextKeyPipelineName, p.GetName()))
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var lastDuration time.Duration
	for count := 0; opts.Count == 0 || count < opts.Count; count++ {
		evt := gelf.NewEvent(gelf.LevelInfo, "heartbeat")
		evt.Logger = "gelfcat.heartbeat"
		evt.Extra.Set("dataset", gelf.StringValue("heartbeat"))
		evt.Extra.Set("sequence", gelf.IntValue(int64(count)))
		if lastDuration > 0 {
			evt.Extra.Set("duration_ms", gelf.FloatValue(float64(lastDuration.Microseconds())/1000))
		}

		log.Debug("sending heartbeat", "sequence", count)
		start := time.Now()
		if err := p.Deliver(ctx, &evt); err != nil {
			log.Error("heartbeat failed", "error", err)
		}
		lastDuration = time.Since(start)

		if opts.Count != 0 && count+1 >= opts.Count {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
