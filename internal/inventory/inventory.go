package inventory

import (
	"context"
	"slices"
)

// Source lists compute instances. Like provider.Provider.GetRecords, a failed
// page stops pagination and the instances gathered so far are returned with
// the error.
type Source interface {
	ListInstances(ctx context.Context) ([]Instance, error)
}

type Instance struct {
	ID               string
	HostName         string
	PrivateAddresses []string
}

// Filter narrows the remote listing. Every non-empty field is sent with the
// request; InstanceIDs is an allow-list.
type Filter struct {
	ZoneID          string
	VpcID           string
	VSwitchID       string
	SecurityGroupID string
	ResourceGroupID string
	InstanceIDs     []string
}

// Exclude drops instances whose id is in ids, keeping order.
func Exclude(instances []Instance, ids []string) []Instance {
	if len(ids) == 0 {
		return instances
	}
	kept := make([]Instance, 0, len(instances))
	for _, i := range instances {
		if !slices.Contains(ids, i.ID) {
			kept = append(kept, i)
		}
	}
	return kept
}
