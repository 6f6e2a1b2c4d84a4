package provider

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"time"

	"github.com/libdns/libdns"
)

var (
	ErrZoneNotFound  = errors.New("zone not found")
	ErrZoneAmbiguous = errors.New("zone ambiguous")
	// ErrNotConfirmed is returned when the backend answers a mutation without
	// confirming the record it acted on.
	ErrNotConfirmed = errors.New("operation not confirmed")
)

// Provider is a DNS zone backend. GetRecords returns whatever it managed to
// collect together with the error that stopped pagination, so callers can
// continue with partial data.
type Provider interface {
	Name() string
	ResolveZone(ctx context.Context, domain string) (string, error)
	GetRecords(ctx context.Context, zone string) ([]Record, error)
	CreateRecord(ctx context.Context, zone string, record Record) (Record, error)
	AnnotateRecord(ctx context.Context, zone string, record Record, remark string) error
	DeleteRecord(ctx context.Context, zone string, record Record) error
}

type Record struct {
	ID     string
	Name   string
	Type   string
	Data   string
	Zone   string
	Remark string
	TTL    time.Duration
}

// ZoneMatchError reports a zone lookup that did not produce exactly one zone.
func ZoneMatchError(domain string, count int) error {
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, domain)
	}
	return fmt.Errorf("%w: %d zones match %s", ErrZoneAmbiguous, count, domain)
}

// AddressRecord builds an address record for name, typed A or AAAA by the
// family of ip. Data keeps ip verbatim, records are matched by exact string.
func AddressRecord(name, ip string, ttl time.Duration) (Record, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return Record{}, fmt.Errorf("parse address %s: %w", ip, err)
	}
	rr := libdns.Address{
		Name: name,
		IP:   addr,
		TTL:  ttl,
	}.RR()
	record := FromLibdns(rr, "")
	record.Data = ip
	return record, nil
}

func FromLibdns(r libdns.Record, zone string) Record {
	rr := r.RR()
	return Record{
		Name: rr.Name,
		Type: rr.Type,
		Data: rr.Data,
		TTL:  rr.TTL,
		Zone: zone,
	}
}

// IsAddress reports whether the record type is one this tool manages.
func IsAddress(recordType string) bool {
	return recordType == "A" || recordType == "AAAA"
}
