package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonnelaakso/emberplus-go/pkg/config"
	"github.com/jonnelaakso/emberplus-go/pkg/consumer"
)

var watchFlags struct {
	previous    bool
	metadata    bool
	allUpdates  bool
	maxAttempts int
	delay       time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch <path>...",
	Short: "Follow parameters and survive connection loss",
	Long: `Subscribe to one or more parameters and emit one JSON record per change
on stdout. When the connection drops, the provider is retried on a fixed
schedule and every watch is re-established; a value that changed while
disconnected is emitted once after recovery. The command fails when all
retry attempts are used up.`,
	Example: `  emberctl watch 0.1.3 --host 10.0.0.5
  emberctl watch Device.Audio.Meter --previous --metadata --max-attempts 10 --delay 2s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.BoolVar(&watchFlags.previous, "previous", false, "Include the previous value in each record")
	f.BoolVar(&watchFlags.metadata, "metadata", false, "Include identifier and description")
	f.BoolVar(&watchFlags.allUpdates, "all-updates", false, "Emit updates even when the value did not change")
	f.IntVar(&watchFlags.maxAttempts, "max-attempts", 0, "Reconnection attempts (default from config)")
	f.DurationVar(&watchFlags.delay, "delay", 0, "Delay between reconnection attempts (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	a, err := newApp(cmd, func(cfg *config.Config) {
		if flags.Changed("previous") {
			cfg.Watch.IncludePreviousValue = watchFlags.previous
		}
		if flags.Changed("metadata") {
			cfg.Watch.IncludeMetadata = watchFlags.metadata
		}
		if watchFlags.allUpdates {
			cfg.Watch.OnlyOnChange = false
		}
		if flags.Changed("max-attempts") {
			cfg.Reconnect.MaxAttempts = watchFlags.maxAttempts
		}
		if flags.Changed("delay") {
			cfg.Reconnect.DelayMs = int(watchFlags.delay / time.Millisecond)
		}
	})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err := a.client.Connect(ctx); err != nil {
		return err
	}

	// Records are always JSON lines; stdout is the data channel.
	var mu sync.Mutex
	enc := json.NewEncoder(a.out)
	emit := func(r consumer.Record) {
		mu.Lock()
		defer mu.Unlock()
		if err := enc.Encode(r); err != nil {
			a.logger.Error("Write record failed", slog.Any("error", err))
		}
	}

	w := consumer.NewWatcher(a.client, a.cfg.WatchOptions(), emit)
	defer w.Close(context.Background())

	exhausted := make(chan error, 1)
	w.OnExhausted(func(err error) {
		select {
		case exhausted <- err:
		default:
		}
	})
	w.OnRestored(func() {
		a.logger.Info("Watches restored", slog.Int("count", len(w.Desired())))
	})

	for _, path := range args {
		if _, err := w.Watch(ctx, path); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-exhausted:
		return err
	}
}
