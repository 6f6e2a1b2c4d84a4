package ecs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aliyun/alibaba-cloud-sdk-go/services/ecs"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/config"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAPI serves canned DescribeInstances pages keyed by page number.
type MockAPI struct {
	pages    map[int]string
	failPage int
	requests []*ecs.DescribeInstancesRequest
}

func (m *MockAPI) DescribeInstances(request *ecs.DescribeInstancesRequest) (*ecs.DescribeInstancesResponse, error) {
	page, err := request.PageNumber.GetValue()
	if err != nil {
		return nil, err
	}
	copied := *request
	m.requests = append(m.requests, &copied)
	if page == m.failPage {
		return nil, errors.New("throttled")
	}
	response := ecs.CreateDescribeInstancesResponse()
	if err := json.Unmarshal([]byte(m.pages[page]), response); err != nil {
		return nil, err
	}
	return response, nil
}

const (
	page1 = `{"TotalCount":3,"PageNumber":1,"PageSize":2,"Instances":{"Instance":[
		{"InstanceId":"i-1","HostName":"web-1","VpcAttributes":{"PrivateIpAddress":{"IpAddress":["10.0.0.1"]}}},
		{"InstanceId":"i-2","HostName":"web-2","VpcAttributes":{"PrivateIpAddress":{"IpAddress":["10.0.0.2","10.0.1.2"]}}}
	]}}`
	page2 = `{"TotalCount":3,"PageNumber":2,"PageSize":2,"Instances":{"Instance":[
		{"InstanceId":"i-3","HostName":"db-1","VpcAttributes":{"PrivateIpAddress":{"IpAddress":["10.0.0.3"]}}}
	]}}`
)

func TestListInstancesPaginates(t *testing.T) {
	api := &MockAPI{pages: map[int]string{1: page1, 2: page2}}
	src := NewWithAPI(api, config.Inventory{}, metrics.New(false))

	instances, err := src.ListInstances(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []inventory.Instance{
		{ID: "i-1", HostName: "web-1", PrivateAddresses: []string{"10.0.0.1"}},
		{ID: "i-2", HostName: "web-2", PrivateAddresses: []string{"10.0.0.2", "10.0.1.2"}},
		{ID: "i-3", HostName: "db-1", PrivateAddresses: []string{"10.0.0.3"}},
	}, instances)
	assert.Len(t, api.requests, 2)
}

func TestListInstancesExcludes(t *testing.T) {
	api := &MockAPI{pages: map[int]string{1: page1, 2: page2}}
	src := NewWithAPI(api, config.Inventory{ExcludeInstanceIDs: []string{"i-2"}}, metrics.New(false))

	instances, err := src.ListInstances(context.Background())
	require.NoError(t, err)

	ids := []string{}
	for _, i := range instances {
		ids = append(ids, i.ID)
	}
	assert.Equal(t, []string{"i-1", "i-3"}, ids)
}

func TestListInstancesPartialOnFailure(t *testing.T) {
	api := &MockAPI{pages: map[int]string{1: page1}, failPage: 2}
	src := NewWithAPI(api, config.Inventory{}, metrics.New(false))

	instances, err := src.ListInstances(context.Background())
	require.Error(t, err)
	assert.Len(t, instances, 2, "instances from the first page are kept")
}

func TestListInstancesSendsFilters(t *testing.T) {
	api := &MockAPI{pages: map[int]string{1: `{"TotalCount":0,"PageNumber":1,"PageSize":100,"Instances":{"Instance":[]}}`}}
	cfg := config.Inventory{
		ZoneID:          "cn-hangzhou-h",
		VpcID:           "vpc-1",
		VSwitchID:       "vsw-1",
		SecurityGroupID: "sg-1",
		ResourceGroupID: "rg-1",
		InstanceIDs:     []string{"i-1", "i-2"},
	}
	src := NewWithAPI(api, cfg, metrics.New(false))

	instances, err := src.ListInstances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, instances)
	require.Len(t, api.requests, 1)

	req := api.requests[0]
	assert.Equal(t, "cn-hangzhou-h", req.ZoneId)
	assert.Equal(t, "vpc-1", req.VpcId)
	assert.Equal(t, "vsw-1", req.VSwitchId)
	assert.Equal(t, "sg-1", req.SecurityGroupId)
	assert.Equal(t, "rg-1", req.ResourceGroupId)
	assert.Equal(t, `["i-1","i-2"]`, req.InstanceIds)
	size, err := req.PageSize.GetValue()
	require.NoError(t, err)
	assert.Equal(t, 100, size)
}

func TestListInstancesStopsOnCancelledContext(t *testing.T) {
	api := &MockAPI{pages: map[int]string{1: page1, 2: page2}}
	src := NewWithAPI(api, config.Inventory{}, metrics.New(false))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.ListInstances(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.requests)
}
