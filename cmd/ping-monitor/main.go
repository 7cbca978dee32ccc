package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	ping "github.com/digineo/go-multiping"
	"github.com/digineo/go-multiping/internal/iprange"
	"github.com/digineo/go-multiping/monitor"
)

func main() {
	cfg := monitor.DefaultConfig()
	cfg.Interval = 5 * time.Second
	cfg.Timeout = 4 * time.Second
	cfg.PayloadSize = 56
	cfg.HistorySize = 60
	cfg.Spread = true

	reportInterval := 60 * time.Second
	opts := ping.Options{Bind4: "0.0.0.0", Bind6: "::", Privileged: true}

	cmd := &cobra.Command{
		Use:           "ping-monitor [flags] target...",
		Short:         "Periodically print ping statistics of many targets",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := iprange.Resolve(cmd.Context(), args, iprange.Options{})
			if err != nil {
				return err
			}
			reg, err := monitor.NewRegistry(targets, cfg)
			if err != nil {
				return err
			}

			pinger, err := ping.New(opts)
			if err != nil {
				return err
			}
			defer pinger.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			mon := monitor.New(pinger, reg)
			mon.Start(ctx)
			monitor.RenderLoop(ctx, mon, reporter{cmd.OutOrStdout()}, monitor.RenderOptions{
				Tick:     reportInterval,
				Shutdown: cancel,
			})
			mon.Wait()
			return nil
		},
	}

	f := cmd.Flags()
	f.DurationVar(&cfg.Interval, "pingInterval", cfg.Interval, "interval for ICMP echo requests")
	f.DurationVar(&cfg.Timeout, "pingTimeout", cfg.Timeout, "timeout for ICMP echo request")
	f.DurationVar(&reportInterval, "reportInterval", reportInterval, "interval for reports")
	f.Uint16Var(&cfg.PayloadSize, "size", cfg.PayloadSize, "size of additional payload data")
	f.BoolVar(&opts.Privileged, "privileged", opts.Privileged, "use raw sockets")

	// Handle SIGINT and SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, ping.ErrTransportUnavailable) {
			fmt.Fprintln(os.Stderr, "Running as root?")
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// reporter prints one line per target.
type reporter struct {
	w io.Writer
}

func (r reporter) Render(snaps []monitor.Snapshot) {
	for _, s := range snaps {
		mean := "-"
		if s.HasRTT() {
			mean = s.Mean.String()
		}
		fmt.Fprintf(r.w, "%s: sent=%s loss=%.1f%% mean=%s status=%s\n",
			s.Target, humanize.Comma(int64(s.Sent)), 100*s.Loss(), mean, s.Status)
	}
}
