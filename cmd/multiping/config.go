package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	ping "github.com/digineo/go-multiping"
	"github.com/digineo/go-multiping/monitor"
)

const (
	envPrefix      = "MULTIPING"
	configDir      = "multiping"
	configFileName = "config"

	minInterval, maxInterval = 500 * time.Millisecond, 10 * time.Second
	minTimeout, maxTimeout   = 100 * time.Millisecond, 5 * time.Second
	minHistory, maxHistory   = 60, 65535

	// 65535 minus IPv4 and ICMP header
	maxPayloadSize = 65507
)

// options is the merged result of flags, environment and config file.
type options struct {
	monitor monitor.Config
	pinger  ping.Options
	network string
	verbose bool
	debug   bool
}

func registerFlags(f *pflag.FlagSet) {
	def := monitor.DefaultConfig()

	f.Float64P("interval", "i", def.Interval.Seconds(), "seconds between two probes of a target (0.5..10)")
	f.Float64P("timeout", "t", def.Timeout.Seconds(), "seconds to wait for a reply (0.1..5)")
	f.UintP("size", "s", uint(def.PayloadSize), "payload size in bytes")
	f.IntP("history", "H", def.HistorySize, "number of probes per target to keep (60..65535)")
	f.Int("down-after", def.DownAfter, "consecutive failed probes until a target is down")
	f.Bool("spread", false, "spread the first probes of all targets over one interval")
	f.Bool("randomize", false, "randomize the payload of every probe")
	f.Bool("privileged", true, "use raw sockets (false: unprivileged datagram ICMP sockets)")
	f.String("bind4", "0.0.0.0", "IPv4 source address, empty to disable IPv4")
	f.String("bind6", "::", "IPv6 source address, empty to disable IPv6")
	f.Int("mark", 0, "SO_MARK for outgoing packets (Linux, raw sockets only)")
	f.BoolP("ipv4", "4", false, "resolve host names to IPv4 addresses only")
	f.BoolP("ipv6", "6", false, "resolve host names to IPv6 addresses only")
	f.BoolP("verbose", "v", false, "show diagnostics in a log pane")
	f.Bool("debug", false, "show debug messages, implies --verbose")
	f.String("config", "", "YAML config file (default $XDG_CONFIG_HOME/multiping/config.yaml)")
}

// loadOptions layers flags over MULTIPING_* environment variables over
// the config file over defaults.
func loadOptions(f *pflag.FlagSet) (*options, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(f); err != nil {
		return nil, err
	}

	explicit, _ := f.GetString("config")
	if err := readConfig(v, explicit); err != nil {
		return nil, err
	}

	return parseOptions(v)
}

func readConfig(v *viper.Viper, explicit string) error {
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil
		}
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(dir, configDir))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func parseOptions(v *viper.Viper) (*options, error) {
	size := v.GetUint("size")
	if size < 1 || size > maxPayloadSize {
		return nil, fmt.Errorf("size must be between 1 and %d bytes, got %d", maxPayloadSize, size)
	}

	downAfter := v.GetInt("down-after")
	if downAfter < 1 {
		return nil, fmt.Errorf("down-after must be at least 1, got %d", downAfter)
	}

	network := "ip"
	switch v4, v6 := v.GetBool("ipv4"), v.GetBool("ipv6"); {
	case v4 && v6:
		return nil, errors.New("--ipv4 and --ipv6 are mutually exclusive")
	case v4:
		network = "ip4"
	case v6:
		network = "ip6"
	}

	opts := &options{
		monitor: monitor.Config{
			Interval:         clamp(seconds(v.GetFloat64("interval")), minInterval, maxInterval),
			Timeout:          clamp(seconds(v.GetFloat64("timeout")), minTimeout, maxTimeout),
			PayloadSize:      uint16(size),
			HistorySize:      clamp(v.GetInt("history"), minHistory, maxHistory),
			DownAfter:        downAfter,
			Spread:           v.GetBool("spread"),
			RandomizePayload: v.GetBool("randomize"),
		},
		pinger: ping.Options{
			Bind4:      v.GetString("bind4"),
			Bind6:      v.GetString("bind6"),
			Privileged: v.GetBool("privileged"),
			Mark:       v.GetInt("mark"),
		},
		network: network,
		debug:   v.GetBool("debug"),
	}
	opts.verbose = opts.debug || v.GetBool("verbose")

	if opts.pinger.Bind4 == "" && opts.pinger.Bind6 == "" {
		return nil, errors.New("at least one of --bind4 and --bind6 is required")
	}
	return opts, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func clamp[T int | time.Duration](v, lo, hi T) T {
	return max(lo, min(v, hi))
}
