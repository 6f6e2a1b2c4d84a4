package reconcile

import (
	"log/slog"
	"slices"
	"sort"
	"strings"
)

// Reconcile computes the operations that converge actual onto desired.
//
// Both inputs are walked as sorted lists, first by hostname and then by
// address within a matching hostname. Addresses compare as plain strings.
// Equal entries are consumed pairwise, so duplicates only produce operations
// for the imbalance. Inputs that are not sorted are normalized on a copy
// first; the caller's slices are never modified.
func Reconcile(desired []DesiredHost, actual []ActualHost) Plan {
	if !desiredSorted(desired) {
		slog.Debug("Desired state not sorted, normalizing", "hosts", len(desired))
		desired = normalizeDesired(desired)
	}
	if !actualSorted(actual) {
		slog.Debug("Actual state not sorted, normalizing", "hosts", len(actual))
		actual = normalizeActual(actual)
	}

	var plan Plan
	i, j := 0, 0
	for i < len(desired) || j < len(actual) {
		switch {
		case i == len(desired):
			plan.removeAll(actual[j].Records)
			j++
		case j == len(actual):
			plan.addAll(desired[i])
			i++
		case desired[i].Hostname > actual[j].Hostname:
			plan.removeAll(actual[j].Records)
			j++
		case desired[i].Hostname < actual[j].Hostname:
			plan.addAll(desired[i])
			i++
		default:
			plan.mergeHost(desired[i], actual[j])
			i++
			j++
		}
	}
	return plan
}

func (p *Plan) mergeHost(desired DesiredHost, actual ActualHost) {
	addrs, records := desired.Addresses, actual.Records
	i, j := 0, 0
	for i < len(addrs) || j < len(records) {
		switch {
		case i == len(addrs):
			p.remove(records[j])
			j++
		case j == len(records):
			p.add(desired.Hostname, addrs[i])
			i++
		case addrs[i] > records[j].Address:
			p.remove(records[j])
			j++
		case addrs[i] < records[j].Address:
			p.add(desired.Hostname, addrs[i])
			i++
		default:
			i++
			j++
		}
	}
}

func (p *Plan) addAll(host DesiredHost) {
	for _, addr := range host.Addresses {
		p.add(host.Hostname, addr)
	}
}

func (p *Plan) removeAll(records []OwnedRecord) {
	for _, r := range records {
		p.remove(r)
	}
}

func (p *Plan) add(hostname, address string) {
	p.Operations = append(p.Operations, Operation{Kind: OpAdd, Hostname: hostname, Address: address})
	p.Added++
}

func (p *Plan) remove(r OwnedRecord) {
	p.Operations = append(p.Operations, Operation{
		Kind:     OpRemove,
		Hostname: r.Hostname,
		Address:  r.Address,
		RecordID: r.ID,
	})
	p.Removed++
}

// desiredSorted reports whether hostnames are strictly ascending and every
// address list is ascending.
func desiredSorted(hosts []DesiredHost) bool {
	for i, h := range hosts {
		if i > 0 && hosts[i-1].Hostname >= h.Hostname {
			return false
		}
		if !sort.StringsAreSorted(h.Addresses) {
			return false
		}
	}
	return true
}

func actualSorted(hosts []ActualHost) bool {
	for i, h := range hosts {
		if i > 0 && hosts[i-1].Hostname >= h.Hostname {
			return false
		}
		for k, r := range h.Records {
			if r.Hostname != h.Hostname {
				return false
			}
			if k > 0 && h.Records[k-1].Address > r.Address {
				return false
			}
		}
	}
	return true
}

// normalizeDesired merges groups sharing a hostname and sorts the result.
func normalizeDesired(hosts []DesiredHost) []DesiredHost {
	index := make(map[string]int, len(hosts))
	out := make([]DesiredHost, 0, len(hosts))
	for _, h := range hosts {
		k, ok := index[h.Hostname]
		if !ok {
			k = len(out)
			index[h.Hostname] = k
			out = append(out, DesiredHost{Hostname: h.Hostname})
		}
		out[k].Addresses = append(out[k].Addresses, h.Addresses...)
	}
	for k := range out {
		sort.Strings(out[k].Addresses)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Hostname < out[b].Hostname })
	return out
}

// normalizeActual regroups records by their own hostname and sorts groups
// and records. Records keep their relative order for equal addresses.
func normalizeActual(hosts []ActualHost) []ActualHost {
	var records []OwnedRecord
	for _, h := range hosts {
		for _, r := range h.Records {
			if r.Hostname == "" {
				r.Hostname = h.Hostname
			}
			records = append(records, r)
		}
	}
	return groupRecords(records)
}

// groupRecords sorts records by (hostname, address) and groups them by
// hostname. The input slice is not modified.
func groupRecords(records []OwnedRecord) []ActualHost {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b OwnedRecord) int {
		if c := strings.Compare(a.Hostname, b.Hostname); c != 0 {
			return c
		}
		return strings.Compare(a.Address, b.Address)
	})

	var out []ActualHost
	for _, r := range sorted {
		if n := len(out); n > 0 && out[n-1].Hostname == r.Hostname {
			out[n-1].Records = append(out[n-1].Records, r)
			continue
		}
		out = append(out, ActualHost{Hostname: r.Hostname, Records: []OwnedRecord{r}})
	}
	return out
}
