package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	ping "github.com/digineo/go-multiping"
	"github.com/digineo/go-multiping/internal/iprange"
	"github.com/digineo/go-multiping/monitor"
)

const (
	exitOK        = 0
	exitUsage     = 1
	exitTransport = 2

	logKeep = 200
)

const privilegeHint = `ICMP sockets could not be opened. Either run as root, grant the binary
raw socket access with "setcap cap_net_raw+ep $(which multiping)", or use
--privileged=false after allowing your group in net.ipv4.ping_group_range.`

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(stderr, "multiping:", err)
	if errors.Is(err, ping.ErrTransportUnavailable) {
		fmt.Fprintln(stderr, privilegeHint)
		return exitTransport
	}
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "multiping [flags] target...",
		Short: "Ping many hosts at once",
		Long: `Send ICMP echo requests to many targets concurrently and show live
round-trip statistics for each of them.

A target is an IPv4 or IPv6 address, a CIDR prefix, an address range or a
host name. Flags may also be set through MULTIPING_* environment variables
or a YAML config file.

Examples:
  multiping 192.0.2.1 2001:db8::1 example.com
  multiping -i 0.5 10.0.0.0/28
  multiping --spread 10.0.0.1-10.0.0.50
  multiping --privileged=false fe80::1-ff`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), opts, args, stdout, stderr)
		},
	}
	registerFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, opts *options, args []string, stdout, stderr io.Writer) error {
	li := interceptLog(logKeep)
	defer li.replay(stderr)
	l := logger{debug: opts.debug, verbose: opts.verbose}
	ping.SetLogger(l)
	monitor.SetLogger(l)

	var progress io.Writer
	if opts.verbose {
		progress = stderr
	}
	targets, err := iprange.Resolve(ctx, args, iprange.Options{
		Network:  opts.network,
		Progress: progress,
	})
	if err != nil {
		return err
	}

	reg, err := monitor.NewRegistry(targets, opts.monitor)
	if err != nil {
		return err
	}

	pinger, err := ping.New(opts.pinger)
	if err != nil {
		return err
	}
	defer pinger.Close()

	var pane *logInterceptor
	if opts.verbose {
		pane = li
	}
	ui := buildTUI(reg.Targets(), pane)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mon := monitor.New(pinger, reg)
	mon.Start(ctx)

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		monitor.RenderLoop(ctx, mon, ui, monitor.RenderOptions{
			Quit:     ui.quit,
			Shutdown: cancel,
		})
	}()
	go func() {
		<-rendered
		ui.Stop()
	}()

	uiErr := ui.Run()
	cancel()
	mon.Wait()
	pinger.Close()

	if uiErr != nil {
		return fmt.Errorf("terminal: %w", uiErr)
	}
	printReport(stdout, mon.Export())
	return nil
}
