// Command dlq-replay moves dead-lettered jobs back into their original queues.
//
//	dlq-replay [queue]
//
// With a queue name only <queue>-dlq is scanned; without one the default
// dead-letter queues are scanned in order. The outcome is written as one JSON
// line: dlq.replay.complete on stdout, or dlq.replay.failed on stderr with exit status 1.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	uniqw "github.com/UniQw/uniqw-dlq"
	"github.com/UniQw/uniqw-dlq/internal/config"
	"github.com/UniQw/uniqw-dlq/replay"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	eventComplete = "dlq.replay.complete"
	eventFailed   = "dlq.replay.failed"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if args == nil {
		args = []string{}
	}
	cmd := newCommand(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		events := newEventLogger(stderr)
		events.Error(eventFailed, zap.String("error", err.Error()))
		_ = events.Sync()
		return 1
	}
	return 0
}

func newCommand(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:           "dlq-replay [queue]",
		Short:         "Replay dead-lettered jobs into their original queues",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var requested string
			if len(args) == 1 {
				requested = args[0]
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := uniqw.NewZapLogger(cfg.LogLevel, stderr)
			defer func() { _ = log.Sync() }()

			backend := uniqw.NewBackend(cfg.Mode, cfg.Connection, nil)
			defer func() {
				if err := backend.Close(); err != nil {
					log.Warnf("close backend: %v", err)
				}
			}()
			log.Debugf("dlq replay starting: mode=%s redis=%s batch=%d", cfg.Mode, cfg.Connection, cfg.BatchSize)

			engine := replay.New(backend, replay.Config{BatchSize: cfg.BatchSize, Logger: log})
			rep, err := engine.Run(cmd.Context(), replay.DLQNames(requested))
			if err != nil {
				return err
			}

			events := newEventLogger(stdout)
			events.Info(eventComplete, zap.Int("replayed", rep.Replayed), zap.Strings("dlqNames", rep.DLQNames))
			// fsync fails with EINVAL on pipes and terminals; the record is already written.
			_ = events.Sync()
			return nil
		},
	}
}

// newEventLogger writes one JSON object per record with the message under "event"
// and no time or level keys.
func newEventLogger(w io.Writer) *zap.Logger {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey: "event",
		LineEnding: zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(w), zapcore.DebugLevel)
	return zap.New(core)
}
