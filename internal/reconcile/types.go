package reconcile

import "time"

// DesiredHost is one hostname and the addresses the inventory reports for it.
// Addresses are kept as reported, duplicates included.
type DesiredHost struct {
	Hostname  string
	Addresses []string
}

// ActualHost groups the owned records currently published for a hostname.
type ActualHost struct {
	Hostname string
	Records  []OwnedRecord
}

type OwnedRecord struct {
	ID       string
	Hostname string
	Address  string
}

type OpKind int

const (
	OpAdd OpKind = iota
	OpRemove
)

func (k OpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	}
	return "unknown"
}

// Operation is a single change to the zone. RecordID is only set for removals.
type Operation struct {
	Kind     OpKind
	Hostname string
	Address  string
	RecordID string
}

type Plan struct {
	Operations []Operation
	Added      int
	Removed    int
}

func (p Plan) IsEmpty() bool {
	return len(p.Operations) == 0
}

type Results struct {
	Added    int
	Removed  int
	Failures []OperationResult
}

type OperationResult struct {
	Operation Operation
	Error     string
}

// Summary describes one finished cycle.
type Summary struct {
	CycleID   string
	Started   time.Time
	Duration  time.Duration
	Hosts     int
	Owned     int
	Plan      Plan
	Results   Results
	DryRun    bool
	Partial   bool
	ListError string
}
