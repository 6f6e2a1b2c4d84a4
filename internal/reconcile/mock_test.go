package reconcile

import (
	"context"
	"fmt"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
)

type MockSource struct {
	instances []inventory.Instance
	err       error
}

func (m *MockSource) ListInstances(ctx context.Context) ([]inventory.Instance, error) {
	return m.instances, m.err
}

type MockProvider struct {
	zone          string
	resolveErr    error
	records       []provider.Record
	getRecordsErr error
	createErr     map[string]error // keyed by address
	annotateErr   error
	deleteErr     map[string]error // keyed by record id

	nextID    int
	created   []provider.Record
	annotated map[string]string
	deleted   []string
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) ResolveZone(ctx context.Context, domain string) (string, error) {
	return m.zone, m.resolveErr
}

func (m *MockProvider) GetRecords(ctx context.Context, zone string) ([]provider.Record, error) {
	return m.records, m.getRecordsErr
}

func (m *MockProvider) CreateRecord(ctx context.Context, zone string, r provider.Record) (provider.Record, error) {
	if err := m.createErr[r.Data]; err != nil {
		return r, err
	}
	m.nextID++
	r.ID = fmt.Sprintf("new-%d", m.nextID)
	r.Zone = zone
	m.created = append(m.created, r)
	return r, nil
}

func (m *MockProvider) AnnotateRecord(ctx context.Context, zone string, r provider.Record, remark string) error {
	if m.annotateErr != nil {
		return m.annotateErr
	}
	if m.annotated == nil {
		m.annotated = make(map[string]string)
	}
	m.annotated[r.ID] = remark
	return nil
}

func (m *MockProvider) DeleteRecord(ctx context.Context, zone string, r provider.Record) error {
	if err := m.deleteErr[r.ID]; err != nil {
		return err
	}
	m.deleted = append(m.deleted, r.ID)
	return nil
}

type MockJournal struct {
	cycles []Summary
	err    error
}

func (m *MockJournal) SaveCycle(ctx context.Context, s Summary) error {
	m.cycles = append(m.cycles, s)
	return m.err
}
