package reconcile

import (
	"log/slog"
	"sort"

	"github.com/evanofslack/aliyun-pvtz-sync/internal/inventory"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/provider"
)

// DesiredState flattens instances into hostname groups. Instances sharing a
// hostname contribute to the same group and addresses are not deduplicated.
func DesiredState(instances []inventory.Instance) []DesiredHost {
	index := make(map[string]int)
	var hosts []DesiredHost
	for _, i := range instances {
		k, ok := index[i.HostName]
		if !ok {
			k = len(hosts)
			index[i.HostName] = k
			hosts = append(hosts, DesiredHost{Hostname: i.HostName})
		}
		hosts[k].Addresses = append(hosts[k].Addresses, i.PrivateAddresses...)
	}

	sort.Slice(hosts, func(a, b int) bool { return hosts[a].Hostname < hosts[b].Hostname })
	for k := range hosts {
		sort.Strings(hosts[k].Addresses)
	}
	return hosts
}

// ActualState keeps the address records annotated with remark and groups
// them by hostname. Everything else is treated as manually managed.
func ActualState(records []provider.Record, remark string) []ActualHost {
	owned := make([]OwnedRecord, 0, len(records))
	for _, r := range records {
		if r.Remark != remark || !provider.IsAddress(r.Type) {
			continue
		}
		owned = append(owned, OwnedRecord{ID: r.ID, Hostname: r.Name, Address: r.Data})
	}
	slog.Debug("Get owned records", "count", len(owned), "excluded", len(records)-len(owned))
	return groupRecords(owned)
}

// CountAddresses returns the total number of addresses across hosts.
func CountAddresses(hosts []DesiredHost) int {
	n := 0
	for _, h := range hosts {
		n += len(h.Addresses)
	}
	return n
}

// CountRecords returns the total number of records across hosts.
func CountRecords(hosts []ActualHost) int {
	n := 0
	for _, h := range hosts {
		n += len(h.Records)
	}
	return n
}
