// Package iprange expands command line arguments into ping targets.
//
// An argument is either a single address, a CIDR prefix, an address range
// ("10.0.0.1-10.0.0.9", or short "10.0.0.1-9" and "fe80::1-ff"), or a
// host name.
package iprange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/digineo/go-multiping/internal"
	"github.com/digineo/go-multiping/monitor"
)

const (
	// MaxAddresses limits the number of addresses a single argument may
	// expand to.
	MaxAddresses = 1 << 16

	resolveWorkers    = 8
	progressThreshold = 5
)

var (
	log = internal.Logger

	errNotAddress    = errors.New("not an address")
	errMixedFamilies = errors.New("cannot mix IPv4 and IPv6")
	errReversed      = errors.New("start address is greater than end address")
	errTooLarge      = fmt.Errorf("more than %d addresses", MaxAddresses)
)

// Parse expands arg into a list of addresses. Host names are not
// resolved.
func Parse(arg string) ([]netip.Addr, error) {
	addrs, err := parse(arg)
	if errors.Is(err, errNotAddress) {
		return nil, invalid(arg, err)
	}
	return addrs, err
}

func parse(arg string) ([]netip.Addr, error) {
	arg = strings.TrimSpace(arg)

	if addr, err := netip.ParseAddr(arg); err == nil {
		return []netip.Addr{addr}, nil
	}

	if strings.Contains(arg, "/") {
		prefix, err := netip.ParsePrefix(arg)
		if err != nil {
			return nil, invalid(arg, err)
		}
		addrs, err := hosts(prefix.Masked())
		if err != nil {
			return nil, invalid(arg, err)
		}
		return addrs, nil
	}

	if from, to, ok := strings.Cut(arg, "-"); ok {
		start, err := netip.ParseAddr(strings.TrimSpace(from))
		if err != nil {
			// host names may contain dashes
			return nil, errNotAddress
		}
		addrs, err := expand(start, strings.TrimSpace(to))
		if err != nil {
			return nil, invalid(arg, err)
		}
		return addrs, nil
	}

	return nil, errNotAddress
}

func invalid(arg string, err error) error {
	return fmt.Errorf("%w: %q: %w", monitor.ErrInvalidAddress, arg, err)
}

// hosts returns the host addresses of p. IPv4 prefixes shorter than /31
// lose their network and broadcast address, IPv6 prefixes shorter than
// /127 their subnet-router anycast address.
func hosts(p netip.Prefix) ([]netip.Addr, error) {
	bits := p.Addr().BitLen() - p.Bits()
	if bits > 16 {
		return nil, errTooLarge
	}

	n := 1 << bits
	skipFirst := p.Bits() < p.Addr().BitLen()-1
	skipLast := skipFirst && p.Addr().Is4()

	addrs := make([]netip.Addr, 0, n)
	addr := p.Addr()
	for i := 0; i < n; i++ {
		if !(i == 0 && skipFirst) && !(i == n-1 && skipLast) {
			addrs = append(addrs, addr)
		}
		addr = addr.Next()
	}
	return addrs, nil
}

// expand returns all addresses from start to the end given by s, both
// inclusive.
func expand(start netip.Addr, s string) ([]netip.Addr, error) {
	var end netip.Addr
	var err error
	if strings.ContainsAny(s, ".:") {
		end, err = netip.ParseAddr(s)
	} else {
		end, err = shortEnd(start, s)
	}
	if err != nil {
		return nil, err
	}

	if start.Is4() != end.Is4() {
		return nil, errMixedFamilies
	}
	end = end.WithZone(start.Zone())
	if end.Less(start) {
		return nil, errReversed
	}

	var addrs []netip.Addr
	for addr := start; ; addr = addr.Next() {
		if len(addrs) == MaxAddresses {
			return nil, errTooLarge
		}
		addrs = append(addrs, addr)
		if addr == end {
			return addrs, nil
		}
	}
}

// shortEnd replaces the last octet (IPv4, decimal) or the last hextet
// (IPv6, decimal or hex) of start.
func shortEnd(start netip.Addr, s string) (netip.Addr, error) {
	if start.Is4() {
		v, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return netip.Addr{}, fmt.Errorf("invalid last octet %q", s)
		}
		b := start.As4()
		b[3] = byte(v)
		return netip.AddrFrom4(b), nil
	}

	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		v, err = strconv.ParseUint(s, 16, 16)
	}
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid last hextet %q", s)
	}
	b := start.As16()
	b[14], b[15] = byte(v>>8), byte(v)
	return netip.AddrFrom16(b).WithZone(start.Zone()), nil
}

// Resolver looks up host names. *net.Resolver implements it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Options controls Resolve.
type Options struct {
	Network  string    // "ip" (default), "ip4" or "ip6"; applies to host names
	Resolver Resolver  // default net.DefaultResolver
	Progress io.Writer // if set, shows a progress bar while resolving many names
}

type argument struct {
	name  bool
	addrs []netip.Addr
}

// Resolve expands all args into targets. Host names are resolved
// concurrently and contribute their first address. Duplicate addresses
// are dropped, the first occurrence wins. All errors wrap
// monitor.ErrInvalidAddress.
func Resolve(ctx context.Context, args []string, opts Options) ([]monitor.Target, error) {
	if opts.Network == "" {
		opts.Network = "ip"
	}
	if opts.Resolver == nil {
		opts.Resolver = net.DefaultResolver
	}

	parsed := make([]argument, len(args))
	var names []int
	for i, arg := range args {
		addrs, err := parse(arg)
		switch {
		case errors.Is(err, errNotAddress):
			parsed[i].name = true
			names = append(names, i)
		case err != nil:
			return nil, err
		default:
			parsed[i].addrs = addrs
		}
	}

	if err := lookup(ctx, args, names, parsed, opts); err != nil {
		return nil, err
	}

	seen := make(map[netip.Addr]struct{})
	var targets []monitor.Target
	for i, a := range parsed {
		for _, addr := range a.addrs {
			if _, dup := seen[addr]; dup {
				log.Infof("debug: %s: skipping duplicate address %s", args[i], addr)
				continue
			}
			seen[addr] = struct{}{}

			label := addr.String()
			if a.name {
				label = strings.TrimSpace(args[i])
			}
			targets = append(targets, monitor.Target{
				Label: label,
				Addr:  net.IPAddr{IP: addr.AsSlice(), Zone: addr.Zone()},
			})
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no targets", monitor.ErrInvalidAddress)
	}
	return targets, nil
}

// lookup resolves parsed[i] for all i in names.
func lookup(ctx context.Context, args []string, names []int, parsed []argument, opts Options) error {
	if len(names) == 0 {
		return nil
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil && len(names) > progressThreshold {
		bar = pb.New(len(names)).Prefix("resolving ")
		bar.Output = opts.Progress
		bar.Start()
		defer bar.Finish()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveWorkers)

	for _, i := range names {
		host := strings.TrimSpace(args[i])
		g.Go(func() error {
			if bar != nil {
				defer bar.Increment()
			}

			addrs, err := opts.Resolver.LookupNetIP(ctx, opts.Network, host)
			if err != nil {
				return invalid(host, err)
			}
			if len(addrs) == 0 {
				return invalid(host, errors.New("no addresses found"))
			}

			addr := addrs[0].Unmap()
			log.Infof("debug: %s: resolved to %s", host, addr)
			parsed[i].addrs = []netip.Addr{addr}
			return nil
		})
	}
	return g.Wait()
}
