package verify

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/reconcile"
	"github.com/miekg/dns"
)

// Mismatch is a hostname whose published addresses differ from inventory.
type Mismatch struct {
	Hostname string
	Want     []string
	Got      []string
	Error    string
}

// Verifier resolves hostnames under a domain against a single nameserver.
type Verifier struct {
	client     *dns.Client
	nameserver string
	domain     string
}

func New(cfg config.Verify, domain string) *Verifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Verifier{
		client: &dns.Client{
			Dialer: &net.Dialer{
				Timeout: timeout,
			},
			Timeout: timeout,
		},
		nameserver: withPort(cfg.Nameserver),
		domain:     strings.TrimSuffix(domain, "."),
	}
}

// Check resolves every desired hostname and returns those whose A and AAAA
// answers do not match. Lookup failures are reported as mismatches.
func (v *Verifier) Check(ctx context.Context, hosts []reconcile.DesiredHost) []Mismatch {
	var mismatches []Mismatch
	for _, h := range hosts {
		want := uniq(h.Addresses)
		got, err := v.Lookup(ctx, h.Hostname)
		if err != nil {
			slog.Warn("Failed to resolve host", "name", v.fqdn(h.Hostname), "nameserver", v.nameserver, "error", err)
			mismatches = append(mismatches, Mismatch{Hostname: h.Hostname, Want: want, Error: err.Error()})
			continue
		}
		if !slices.Equal(want, got) {
			mismatches = append(mismatches, Mismatch{Hostname: h.Hostname, Want: want, Got: got})
		}
	}
	slog.Info("Verified hosts", "hosts", len(hosts), "mismatched", len(mismatches), "nameserver", v.nameserver)
	return mismatches
}

// Lookup returns the sorted unique A and AAAA addresses for hostname.
func (v *Verifier) Lookup(ctx context.Context, hostname string) ([]string, error) {
	var addrs []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(v.fqdn(hostname)), qtype)
		m.RecursionDesired = true

		in, rtt, err := v.client.ExchangeContext(ctx, m, v.nameserver)
		if err != nil {
			return nil, fmt.Errorf("exchange %s %s: %w", dns.TypeToString[qtype], hostname, err)
		}
		slog.Debug("Resolved host", "name", m.Question[0].Name, "type", dns.TypeToString[qtype], "rtt", rtt, "rcode", dns.RcodeToString[in.Rcode])

		if in.Rcode != dns.RcodeSuccess && in.Rcode != dns.RcodeNameError {
			return nil, fmt.Errorf("query %s %s: rcode %s", dns.TypeToString[qtype], hostname, dns.RcodeToString[in.Rcode])
		}
		for _, rr := range in.Answer {
			switch r := rr.(type) {
			case *dns.A:
				addrs = append(addrs, r.A.String())
			case *dns.AAAA:
				addrs = append(addrs, r.AAAA.String())
			}
		}
	}
	return uniq(addrs), nil
}

func (v *Verifier) fqdn(hostname string) string {
	if v.domain == "" {
		return hostname
	}
	return hostname + "." + v.domain
}

func uniq(addrs []string) []string {
	out := slices.Clone(addrs)
	slices.Sort(out)
	return slices.Compact(out)
}

func withPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), "53")
}
