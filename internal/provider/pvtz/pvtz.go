package pvtz

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/pvtz"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
)

const (
	pageSize    = 100
	vpcEndpoint = "pvtz.vpc-proxy.aliyuncs.com"
)

// API is the subset of the PrivateZone client used here.
type API interface {
	DescribeZones(request *pvtz.DescribeZonesRequest) (*pvtz.DescribeZonesResponse, error)
	DescribeZoneRecords(request *pvtz.DescribeZoneRecordsRequest) (*pvtz.DescribeZoneRecordsResponse, error)
	AddZoneRecord(request *pvtz.AddZoneRecordRequest) (*pvtz.AddZoneRecordResponse, error)
	UpdateRecordRemark(request *pvtz.UpdateRecordRemarkRequest) (*pvtz.UpdateRecordRemarkResponse, error)
	DeleteZoneRecord(request *pvtz.DeleteZoneRecordRequest) (*pvtz.DeleteZoneRecordResponse, error)
}

type PvtzProvider struct {
	api             API
	metrics         *metrics.Metrics
	regionID        string
	resourceGroupID string
	endpoint        string
}

func New(creds config.Aliyun, cfg config.DNS, metrics *metrics.Metrics) (*PvtzProvider, error) {
	client, err := pvtz.NewClientWithAccessKey(cfg.RegionID, creds.AccessKey, creds.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("create pvtz client: %w", err)
	}
	p := NewWithAPI(client, cfg, metrics)
	if creds.RequestNetwork == config.NetworkVPC {
		p.endpoint = vpcEndpoint
	}
	return p, nil
}

func NewWithAPI(api API, cfg config.DNS, metrics *metrics.Metrics) *PvtzProvider {
	return &PvtzProvider{
		api:             api,
		metrics:         metrics,
		regionID:        cfg.RegionID,
		resourceGroupID: cfg.ResourceGroupID,
	}
}

func (p *PvtzProvider) Name() string {
	return "pvtz"
}

// ResolveZone looks up the zone id by exact keyword match. Anything other
// than exactly one match is an error.
func (p *PvtzProvider) ResolveZone(ctx context.Context, domain string) (string, error) {
	request := pvtz.CreateDescribeZonesRequest()
	p.route(request)
	request.SearchMode = "EXACT"
	request.QueryRegionId = p.regionID
	request.Keyword = domain
	if p.resourceGroupID != "" {
		request.ResourceGroupId = p.resourceGroupID
	}

	response, err := p.api.DescribeZones(request)
	if err != nil {
		p.metrics.IncDNSRequest("resolve", domain, false)
		return "", fmt.Errorf("describe zones: %w", err)
	}
	p.metrics.IncDNSRequest("resolve", domain, true)

	if response.TotalItems != 1 || len(response.Zones.Zone) != 1 {
		count := response.TotalItems
		if count == 1 {
			count = len(response.Zones.Zone)
		}
		return "", provider.ZoneMatchError(domain, count)
	}
	zone := response.Zones.Zone[0]
	slog.Debug("Resolved zone", "domain", domain, "zone", zone.ZoneId)
	return zone.ZoneId, nil
}

func (p *PvtzProvider) GetRecords(ctx context.Context, zone string) ([]provider.Record, error) {
	slog.Info("Getting DNS records", "zone", zone)
	start := time.Now()

	request := pvtz.CreateDescribeZoneRecordsRequest()
	p.route(request)
	request.ZoneId = zone
	request.PageSize = requests.NewInteger(pageSize)

	var result []provider.Record
	for page := 1; ; page++ {
		request.PageNumber = requests.NewInteger(page)

		response, err := p.api.DescribeZoneRecords(request)
		if err != nil {
			p.metrics.IncDNSRequest("read", zone, false)
			return result, fmt.Errorf("describe zone records page %d: %w", page, err)
		}
		p.metrics.IncDNSRequest("read", zone, true)

		for _, r := range response.Records.Record {
			result = append(result, provider.Record{
				ID:     strconv.FormatInt(r.RecordId, 10),
				Name:   r.Rr,
				Type:   r.Type,
				Data:   r.Value,
				Zone:   zone,
				Remark: r.Remark,
				TTL:    time.Duration(r.Ttl) * time.Second,
			})
		}

		number := response.PageNumber
		if number == 0 {
			number = page
		}
		if response.TotalPages <= number {
			break
		}
	}

	slog.Debug("Retrieved DNS records", "zone", zone, "count", len(result), "duration", time.Since(start))
	return result, nil
}

func (p *PvtzProvider) CreateRecord(ctx context.Context, zone string, record provider.Record) (provider.Record, error) {
	request := pvtz.CreateAddZoneRecordRequest()
	p.route(request)
	request.ZoneId = zone
	request.Rr = record.Name
	request.Type = record.Type
	request.Value = record.Data
	if record.TTL > 0 {
		request.Ttl = requests.NewInteger(int(record.TTL.Seconds()))
	}

	response, err := p.api.AddZoneRecord(request)
	if err != nil {
		p.metrics.IncDNSRequest("create", zone, false)
		return record, fmt.Errorf("add zone record: %w", err)
	}
	if !response.Success {
		p.metrics.IncDNSRequest("create", zone, false)
		return record, fmt.Errorf("%w: add zone record, request id %s", provider.ErrNotConfirmed, response.RequestId)
	}
	if response.RecordId == 0 {
		p.metrics.IncDNSRequest("create", zone, false)
		return record, fmt.Errorf("%w: add zone record returned no record id, request id %s", provider.ErrNotConfirmed, response.RequestId)
	}

	p.metrics.IncDNSRequest("create", zone, true)
	record.ID = strconv.FormatInt(response.RecordId, 10)
	record.Zone = zone
	return record, nil
}

func (p *PvtzProvider) AnnotateRecord(ctx context.Context, zone string, record provider.Record, remark string) error {
	id, err := strconv.ParseInt(record.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse record id %q: %w", record.ID, err)
	}

	request := pvtz.CreateUpdateRecordRemarkRequest()
	p.route(request)
	request.RecordId = requests.NewInteger64(id)
	request.Remark = remark

	response, err := p.api.UpdateRecordRemark(request)
	if err != nil {
		p.metrics.IncDNSRequest("annotate", zone, false)
		return fmt.Errorf("update record remark: %w", err)
	}
	if response.RecordId != 0 && response.RecordId != id {
		p.metrics.IncDNSRequest("annotate", zone, false)
		return fmt.Errorf("%w: update record remark, request id %s", provider.ErrNotConfirmed, response.RequestId)
	}
	p.metrics.IncDNSRequest("annotate", zone, true)
	return nil
}

func (p *PvtzProvider) DeleteRecord(ctx context.Context, zone string, record provider.Record) error {
	id, err := strconv.ParseInt(record.ID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse record id %q: %w", record.ID, err)
	}

	request := pvtz.CreateDeleteZoneRecordRequest()
	p.route(request)
	request.RecordId = requests.NewInteger64(id)

	response, err := p.api.DeleteZoneRecord(request)
	if err != nil {
		p.metrics.IncDNSRequest("delete", zone, false)
		return fmt.Errorf("delete zone record: %w", err)
	}
	if response.RecordId != id {
		p.metrics.IncDNSRequest("delete", zone, false)
		return fmt.Errorf("%w: delete zone record, request id %s", provider.ErrNotConfirmed, response.RequestId)
	}
	p.metrics.IncDNSRequest("delete", zone, true)
	return nil
}

// route points the request at the vpc proxy endpoint when configured.
func (p *PvtzProvider) route(request requests.AcsRequest) {
	if p.endpoint != "" {
		request.SetDomain(p.endpoint)
	}
}
