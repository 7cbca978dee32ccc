package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	ping "github.com/digineo/go-multiping"
	"github.com/digineo/go-multiping/internal/iprange"
)

func main() {
	var attempts uint
	var timeout time.Duration
	var size uint16
	var opts ping.Options

	cmd := &cobra.Command{
		Use:           "ping-test [flags] target",
		Short:         "Check whether a single target answers ICMP echo requests",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := iprange.Resolve(cmd.Context(), args, iprange.Options{})
			if err != nil {
				return err
			}
			if len(targets) > 1 {
				return fmt.Errorf("%s: expected a single address, got %d", args[0], len(targets))
			}

			pinger, err := ping.New(opts)
			if err != nil {
				return err
			}
			defer pinger.Close()

			var payload ping.Payload
			payload.Resize(size)

			rtt, err := attempt(cmd.Context(), pinger, &targets[0].Addr, payload, timeout, attempts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ping successful: %s (%v)\n", targets[0], rtt)
			return nil
		},
	}

	f := cmd.Flags()
	f.UintVar(&attempts, "attempts", 3, "number of attempts")
	f.DurationVar(&timeout, "timeout", time.Second, "timeout for a single echo request")
	f.Uint16Var(&size, "size", 32, "payload size in bytes")
	f.StringVar(&opts.Bind4, "bind4", "0.0.0.0", "IPv4 bind address")
	f.StringVar(&opts.Bind6, "bind6", "::", "IPv6 bind address")
	f.BoolVar(&opts.Privileged, "privileged", true, "use raw sockets")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cmd.ExecuteContext(ctx)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, ping.ErrTransportUnavailable):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// attempt pings remote up to n times and returns the first round trip
// time.
func attempt(ctx context.Context, pinger *ping.Pinger, remote *net.IPAddr, payload []byte, timeout time.Duration, n uint) (rtt time.Duration, err error) {
	for i := uint(0); i < max(n, 1); i++ {
		rtt, err = pinger.Ping(ctx, remote, payload, timeout)
		if err == nil || ctx.Err() != nil {
			return
		}
	}
	return
}
