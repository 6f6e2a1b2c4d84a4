package state

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/metrics"
	"github.com/evanofslack/aliyun-pvtz-sync/internal/reconcile"
)

const (
	cyclePrefix = "cycle:"
	// number of cycles kept before the oldest are pruned
	defaultRetain = 100
)

// Cycle is the persisted outcome of one sync cycle.
type Cycle struct {
	ID        string        `json:"id"`
	Started   time.Time     `json:"started"`
	Duration  time.Duration `json:"duration"`
	Hosts     int           `json:"hosts"`
	Owned     int           `json:"owned"`
	Planned   int           `json:"planned"`
	Added     int           `json:"added"`
	Removed   int           `json:"removed"`
	Failures  []string      `json:"failures,omitempty"`
	DryRun    bool          `json:"dryRun"`
	Partial   bool          `json:"partial"`
	ListError string        `json:"listError,omitempty"`
}

type Manager interface {
	SaveCycle(ctx context.Context, s reconcile.Summary) error
	LastCycle(ctx context.Context) (Cycle, bool, error)
	Cycles(ctx context.Context, limit int) ([]Cycle, error)
	Close() error
}

type badgerManager struct {
	db      *badger.DB
	metrics *metrics.Metrics
	retain  int
}

// New opens the journal at path. An empty path keeps the journal in memory
// for the lifetime of the process.
func New(path string, metrics *metrics.Metrics) (Manager, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil // Disable Badger's internal logger

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	m := &badgerManager{db: db, metrics: metrics, retain: defaultRetain}
	return m, nil
}

func fromSummary(s reconcile.Summary) Cycle {
	c := Cycle{
		ID:        s.CycleID,
		Started:   s.Started,
		Duration:  s.Duration,
		Hosts:     s.Hosts,
		Owned:     s.Owned,
		Planned:   len(s.Plan.Operations),
		Added:     s.Results.Added,
		Removed:   s.Results.Removed,
		DryRun:    s.DryRun,
		Partial:   s.Partial,
		ListError: s.ListError,
	}
	for _, f := range s.Results.Failures {
		op := f.Operation
		c.Failures = append(c.Failures, fmt.Sprintf("%s %s %s: %s", op.Kind, op.Hostname, op.Address, f.Error))
	}
	return c
}

// cycleKey orders cycles by start time, big endian so keys sort numerically.
func cycleKey(c Cycle) []byte {
	key := make([]byte, len(cyclePrefix)+8, len(cyclePrefix)+8+len(c.ID))
	copy(key, cyclePrefix)
	binary.BigEndian.PutUint64(key[len(cyclePrefix):], uint64(c.Started.UnixNano()))
	return append(key, c.ID...)
}

func (m *badgerManager) SaveCycle(ctx context.Context, s reconcile.Summary) error {
	c := fromSummary(s)
	data, err := json.Marshal(c)
	if err != nil {
		m.metrics.IncStateRequest("update", false)
		return fmt.Errorf("marshal cycle: %w", err)
	}

	txn := m.db.NewTransaction(true)
	defer txn.Discard()

	if err := txn.Set(cycleKey(c), data); err != nil {
		m.metrics.IncStateRequest("update", false)
		return fmt.Errorf("set cycle: %w", err)
	}
	err = txn.Commit()
	m.metrics.IncStateRequest("update", err == nil)
	if err != nil {
		return fmt.Errorf("commit cycle: %w", err)
	}
	return m.prune()
}

// prune deletes the oldest cycles beyond the retain limit.
func (m *badgerManager) prune() error {
	var stale [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(cyclePrefix)
		seen := 0
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			seen++
			if seen > m.retain {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil || len(stale) == 0 {
		return err
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	m.metrics.IncStateRequest("delete", err == nil)
	if err != nil {
		return fmt.Errorf("prune cycles: %w", err)
	}
	return nil
}

// Cycles returns up to limit cycles, newest first. A limit of zero or less
// returns every stored cycle.
func (m *badgerManager) Cycles(ctx context.Context, limit int) ([]Cycle, error) {
	var cycles []Cycle

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(cyclePrefix)
		for it.Seek(append(prefix, 0xff)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(cycles) >= limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				var c Cycle
				if err := json.Unmarshal(val, &c); err != nil {
					return err
				}
				cycles = append(cycles, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	m.metrics.IncStateRequest("read", err == nil)
	return cycles, err
}

func (m *badgerManager) LastCycle(ctx context.Context) (Cycle, bool, error) {
	cycles, err := m.Cycles(ctx, 1)
	if err != nil || len(cycles) == 0 {
		return Cycle{}, false, err
	}
	return cycles[0], true, nil
}

func (m *badgerManager) Close() error {
	return m.db.Close()
}
