// Command midirx decodes a serial MIDI stream and logs every message.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Garik-/midirx/pkg/midi"
	"github.com/Garik-/midirx/pkg/serialin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath    string
	debug         bool
	queueSize     int
	sysexSize     int
	drainInterval time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "midirx",
		Short:         "Decode serial MIDI into note, controller and sysex events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .yml or .toml)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.IntVar(&opts.queueSize, "queue-size", defaultQueueSize, "receive queue size, a power of two")
	flags.IntVar(&opts.sysexSize, "sysex-size", midi.DefaultSysExCapacity, "largest sysex payload in bytes")
	flags.DurationVar(&opts.drainInterval, "drain-interval", defaultDrainInterval, "how often the queue is drained")

	root.AddCommand(newListenCmd(opts), newReplayCmd(opts), newPortsCmd())
	return root
}

// resolve loads the config file and applies flags the user set explicitly.
func (o *rootOptions) resolve(cmd *cobra.Command) (config, error) {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = o.debug
	}
	if flags.Changed("queue-size") {
		cfg.QueueSize = o.queueSize
	}
	if flags.Changed("sysex-size") {
		cfg.SysExSize = o.sysexSize
	}
	if flags.Changed("drain-interval") {
		cfg.DrainInterval = o.drainInterval
	}
	return cfg, nil
}

func setupLogger(cfg config) (*zap.Logger, error) {
	log, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Debug {
		enableDebugLogging(log)
	}
	return log, nil
}

func newListenCmd(opts *rootOptions) *cobra.Command {
	var (
		port string
		baud int
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Receive MIDI from a serial port until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Serial.Port = port
			}
			if cmd.Flags().Changed("baud") {
				cfg.Serial.Baud = baud
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			sp, err := serialin.Open(cfg.Serial)
			if err != nil {
				return err
			}
			defer sp.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info("listening", zap.String("port", cfg.Serial.Port), zap.Int("baud", cfg.Serial.Baud))
			_, err = receive(ctx, cfg, sp, newEventLogger(log), log)
			return err
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "serial device, e.g. /dev/ttyUSB0")
	cmd.Flags().IntVarP(&baud, "baud", "b", serialin.DefaultBaud, "baud rate")
	return cmd
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var fast bool

	cmd := &cobra.Command{
		Use:   "replay <file.mid>",
		Short: "Feed the events of a Standard MIDI File through the decoder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}

			log, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			reader := midi.NewFileReader(f)
			if err := reader.Decode(); err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}

			wire := reader.WireBytes()
			log.Info("replaying", zap.String("file", args[0]), zap.Int("tracks", len(reader.Tracks)), zap.Int("bytes", len(wire)))

			src := bytes.NewReader(wire)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var rep report
			if fast {
				cfg.QueueSize = fastQueueSize(cfg.QueueSize, len(wire))
				log.Debug("queue", zap.Int("size", cfg.QueueSize))
				rep, err = receive(ctx, cfg, src, newEventLogger(log), log)
			} else {
				rep, err = receive(ctx, cfg, newPacedReader(src, cfg.Serial.Baud), newEventLogger(log), log)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d bytes, %d events, %d dropped\n", rep.Pump.Read, rep.Decoder.Dispatched, rep.Pump.Dropped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fast, "fast", false, "do not pace input at the serial baud rate; the queue grows to hold the whole file (up to 65536 bytes) and bytes beyond that are dropped")
	return cmd
}

func newPortsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialin.Ports()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "midirx: %v\n", err)
		os.Exit(1)
	}
}
