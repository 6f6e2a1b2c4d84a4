package ecs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/requests"
	"github.com/aliyun/alibaba-cloud-sdk-go/services/ecs"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
)

const pageSize = 100

// API is the subset of the ECS client used here.
type API interface {
	DescribeInstances(request *ecs.DescribeInstancesRequest) (*ecs.DescribeInstancesResponse, error)
}

type Source struct {
	api     API
	filter  inventory.Filter
	exclude []string
	metrics *metrics.Metrics
}

func New(creds config.Aliyun, cfg config.Inventory, metrics *metrics.Metrics) (*Source, error) {
	client, err := ecs.NewClientWithAccessKey(cfg.RegionID, creds.AccessKey, creds.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("create ecs client: %w", err)
	}
	if creds.RequestNetwork == config.NetworkVPC {
		client.Network = config.NetworkVPC
	}
	return NewWithAPI(client, cfg, metrics), nil
}

func NewWithAPI(api API, cfg config.Inventory, metrics *metrics.Metrics) *Source {
	return &Source{
		api: api,
		filter: inventory.Filter{
			ZoneID:          cfg.ZoneID,
			VpcID:           cfg.VpcID,
			VSwitchID:       cfg.VSwitchID,
			SecurityGroupID: cfg.SecurityGroupID,
			ResourceGroupID: cfg.ResourceGroupID,
			InstanceIDs:     cfg.InstanceIDs,
		},
		exclude: cfg.ExcludeInstanceIDs,
		metrics: metrics,
	}
}

func (s *Source) ListInstances(ctx context.Context) ([]inventory.Instance, error) {
	start := time.Now()
	var instances []inventory.Instance

	request, err := s.filterRequest()
	if err != nil {
		return nil, err
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return s.finish(instances), err
		}
		request.PageNumber = requests.NewInteger(page)

		response, err := s.api.DescribeInstances(request)
		if err != nil {
			s.metrics.IncInventoryRequest(false)
			return s.finish(instances), fmt.Errorf("describe instances page %d: %w", page, err)
		}
		s.metrics.IncInventoryRequest(true)

		for _, i := range response.Instances.Instance {
			instances = append(instances, inventory.Instance{
				ID:               i.InstanceId,
				HostName:         i.HostName,
				PrivateAddresses: i.VpcAttributes.PrivateIpAddress.IpAddress,
			})
		}

		number, size := response.PageNumber, response.PageSize
		if number == 0 {
			number = page
		}
		if size == 0 {
			size = pageSize
		}
		if len(response.Instances.Instance) == 0 || response.TotalCount <= number*size {
			break
		}
	}

	slog.Debug("Listed instances", "count", len(instances), "duration", time.Since(start))
	return s.finish(instances), nil
}

func (s *Source) finish(instances []inventory.Instance) []inventory.Instance {
	filtered := inventory.Exclude(instances, s.exclude)
	if len(s.exclude) > 0 {
		slog.Debug("Get instances", "count", len(filtered), "excluded", len(instances)-len(filtered))
	} else {
		slog.Debug("Get instances", "count", len(filtered))
	}
	return filtered
}

func (s *Source) filterRequest() (*ecs.DescribeInstancesRequest, error) {
	request := ecs.CreateDescribeInstancesRequest()
	request.PageSize = requests.NewInteger(pageSize)
	request.ZoneId = s.filter.ZoneID
	request.VpcId = s.filter.VpcID
	request.VSwitchId = s.filter.VSwitchID
	request.SecurityGroupId = s.filter.SecurityGroupID
	request.ResourceGroupId = s.filter.ResourceGroupID
	if len(s.filter.InstanceIDs) > 0 {
		ids, err := json.Marshal(s.filter.InstanceIDs)
		if err != nil {
			return nil, fmt.Errorf("encode instance ids: %w", err)
		}
		request.InstanceIds = string(ids)
	}
	return request, nil
}
