package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
)

const perPage = 100

// API is the subset of the cloudflare client used here.
type API interface {
	ListZones(ctx context.Context, z ...string) ([]cloudflare.Zone, error)
	ListDNSRecords(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error)
	CreateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.CreateDNSRecordParams) (cloudflare.DNSRecord, error)
	UpdateDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.UpdateDNSRecordParams) (cloudflare.DNSRecord, error)
	DeleteDNSRecord(ctx context.Context, rc *cloudflare.ResourceContainer, recordID string) error
}

// CloudflareProvider keeps records in a cloudflare zone. The ownership remark
// is stored in the record comment and names are relative to the domain.
type CloudflareProvider struct {
	client  API
	metrics *metrics.Metrics
	domain  string
}

func New(cfg config.DNS, metrics *metrics.Metrics) (*CloudflareProvider, error) {
	token := cfg.Token
	if token == "" {
		return nil, fmt.Errorf("cloudflare API token required")
	}

	client, err := cloudflare.NewWithAPIToken(token)
	if err != nil {
		return nil, fmt.Errorf("create cloudflare client: %w", err)
	}
	return NewWithAPI(client, cfg, metrics), nil
}

func NewWithAPI(client API, cfg config.DNS, metrics *metrics.Metrics) *CloudflareProvider {
	return &CloudflareProvider{
		client:  client,
		metrics: metrics,
		domain:  cfg.Domain,
	}
}

func (p *CloudflareProvider) Name() string {
	return "cloudflare"
}

func (p *CloudflareProvider) ResolveZone(ctx context.Context, domain string) (string, error) {
	zones, err := p.client.ListZones(ctx, domain)
	if err != nil {
		p.metrics.IncDNSRequest("resolve", domain, false)
		return "", fmt.Errorf("list zones: %w", err)
	}
	p.metrics.IncDNSRequest("resolve", domain, true)

	if len(zones) != 1 {
		return "", provider.ZoneMatchError(domain, len(zones))
	}
	slog.Debug("Resolved zone", "domain", domain, "zone", zones[0].ID)
	return zones[0].ID, nil
}

func (p *CloudflareProvider) GetRecords(ctx context.Context, zone string) ([]provider.Record, error) {
	slog.Info("Getting DNS records", "zone", zone)
	start := time.Now()

	var result []provider.Record
	rc := cloudflare.ZoneIdentifier(zone)
	for _, recordType := range []string{"A", "AAAA"} {
		page := 1
		for {
			params := cloudflare.ListDNSRecordsParams{
				Type: recordType,
				ResultInfo: cloudflare.ResultInfo{
					Page:    page,
					PerPage: perPage,
				},
			}

			records, resultInfo, err := p.client.ListDNSRecords(ctx, rc, params)
			if err != nil {
				p.metrics.IncDNSRequest("read", zone, false)
				return result, fmt.Errorf("list %s records page %d: %w", recordType, page, err)
			}
			p.metrics.IncDNSRequest("read", zone, true)

			for _, r := range records {
				result = append(result, provider.Record{
					ID:     r.ID,
					Name:   getRecordName(r.Name, p.domain),
					Type:   r.Type,
					Data:   r.Content,
					TTL:    time.Duration(r.TTL) * time.Second,
					Zone:   zone,
					Remark: r.Comment,
				})
			}
			if resultInfo == nil || page >= resultInfo.TotalPages {
				break
			}
			page++
		}
	}

	slog.Debug("Retrieved DNS records", "zone", zone, "count", len(result), "duration", time.Since(start))
	return result, nil
}

func (p *CloudflareProvider) CreateRecord(ctx context.Context, zone string, record provider.Record) (provider.Record, error) {
	start := time.Now()

	params := cloudflare.CreateDNSRecordParams{
		Type:    record.Type,
		Name:    getFQDN(record.Name, p.domain),
		Content: record.Data,
		TTL:     int(record.TTL.Seconds()),
	}
	if params.TTL == 0 {
		// 1 means automatic
		params.TTL = 1
	}

	created, err := p.client.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone), params)
	if err != nil {
		p.metrics.IncDNSRequest("create", zone, false)
		return record, fmt.Errorf("create dns record: %w", err)
	}
	if created.ID == "" {
		p.metrics.IncDNSRequest("create", zone, false)
		return record, fmt.Errorf("%w: create dns record %s", provider.ErrNotConfirmed, record.Name)
	}

	p.metrics.IncDNSRequest("create", zone, true)
	slog.Debug("Created DNS record", "zone", zone, "name", record.Name, "type", record.Type, "duration", time.Since(start))
	record.ID = created.ID
	record.Zone = zone
	return record, nil
}

func (p *CloudflareProvider) AnnotateRecord(ctx context.Context, zone string, record provider.Record, remark string) error {
	params := cloudflare.UpdateDNSRecordParams{
		ID:      record.ID,
		Comment: &remark,
	}

	updated, err := p.client.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zone), params)
	if err != nil {
		p.metrics.IncDNSRequest("annotate", zone, false)
		return fmt.Errorf("update dns record comment: %w", err)
	}
	if updated.ID != "" && updated.ID != record.ID {
		p.metrics.IncDNSRequest("annotate", zone, false)
		return fmt.Errorf("%w: update dns record %s", provider.ErrNotConfirmed, record.ID)
	}
	p.metrics.IncDNSRequest("annotate", zone, true)
	return nil
}

func (p *CloudflareProvider) DeleteRecord(ctx context.Context, zone string, record provider.Record) error {
	start := time.Now()

	err := p.client.DeleteDNSRecord(ctx, cloudflare.ZoneIdentifier(zone), record.ID)
	if err != nil {
		p.metrics.IncDNSRequest("delete", zone, false)
		return fmt.Errorf("delete dns record: %w", err)
	}

	p.metrics.IncDNSRequest("delete", zone, true)
	slog.Debug("Deleted DNS record", "zone", zone, "name", record.Name, "type", record.Type, "duration", time.Since(start))
	return nil
}

func getRecordName(host, domain string) string {
	if host == domain {
		return "@"
	}
	return strings.TrimSuffix(host, "."+domain)
}

func getFQDN(name, domain string) string {
	if name == "@" || name == "" {
		return domain
	}
	return name + "." + domain
}
