package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-detmir/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrAlreadyExported is returned when Export is called a second time.
	ErrAlreadyExported = errors.New("pipeline: dataset already exported")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []models.Record) error
	Close() error
	Validate() error
}

// Dataset accumulates records across cities in fetch order. Records are
// never dropped; ids seen again within the recent window are only counted.
type Dataset struct {
	mu       sync.Mutex
	records  []models.Record
	seen     *lru.Cache[string, struct{}]
	metrics  metrics
	exported bool
}

// NewDataset builds a dataset that remembers the last window record keys
// for duplicate reporting.
func NewDataset(window int) (*Dataset, error) {
	if window <= 0 {
		window = 1
	}
	seen, err := lru.New[string, struct{}](window)
	if err != nil {
		return nil, fmt.Errorf("create duplicate window: %w", err)
	}
	return &Dataset{
		seen:    seen,
		metrics: newMetrics(),
	}, nil
}

// Append adds records to the end of the dataset.
func (d *Dataset) Append(records ...models.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rec := range records {
		key := rec.City + "|" + rec.ID
		if d.seen.Contains(key) {
			d.metrics.duplicates++
		}
		d.seen.Add(key, struct{}{})
		d.metrics.byCity[rec.City]++
		d.records = append(d.records, rec)
	}
}

// Len returns the number of accumulated records.
func (d *Dataset) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// Records returns a copy of the accumulated records.
func (d *Dataset) Records() []models.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.Record, len(d.records))
	copy(out, d.records)
	return out
}

// GetMetrics returns a snapshot of the internal counters.
func (d *Dataset) GetMetrics() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics.snapshot(len(d.records))
}

// Export hands every record to w in a single Write, then closes and
// validates the output. A dataset can be exported once.
func (d *Dataset) Export(w OutputWriter) error {
	d.mu.Lock()
	if d.exported {
		d.mu.Unlock()
		return ErrAlreadyExported
	}
	d.exported = true
	records := make([]models.Record, len(d.records))
	copy(records, d.records)
	d.mu.Unlock()

	if err := w.Write(records); err != nil {
		w.Close()
		return fmt.Errorf("write records: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("validate output: %w", err)
	}
	return nil
}

type metrics struct {
	duplicates int64
	byCity     map[string]int
}

func newMetrics() metrics {
	return metrics{
		byCity: make(map[string]int),
	}
}

func (m *metrics) snapshot(total int) map[string]interface{} {
	byCity := make(map[string]int, len(m.byCity))
	for k, v := range m.byCity {
		byCity[k] = v
	}
	return map[string]interface{}{
		"records":       int64(total),
		"duplicate_ids": m.duplicates,
		"by_city":       byCity,
	}
}
