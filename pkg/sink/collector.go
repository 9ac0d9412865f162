package sink

import (
	"sync"

	"github.com/ajitpratap0/colbatch/pkg/columnar"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// CollectedBatch is an owned copy of one flushed batch
type CollectedBatch struct {
	Sequence int
	Final    bool
	Rows     int
	Headers  []string
	Columns  [][]*string
}

// Column returns the values of the named column
func (b CollectedBatch) Column(name string) ([]*string, bool) {
	for i := len(b.Headers) - 1; i >= 0; i-- {
		if b.Headers[i] == name && i < len(b.Columns) {
			return b.Columns[i], true
		}
	}
	return nil, false
}

// Collector keeps a deep copy of every batch in memory
type Collector struct {
	mu      sync.Mutex
	batches []CollectedBatch
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{}
}

// BatchProcessed copies the batch
func (c *Collector) BatchProcessed(rows int, batch processor.Batch) error {
	collected := CollectedBatch{
		Sequence: batch.Sequence,
		Final:    batch.Final,
		Rows:     rows,
		Headers:  batch.Columns.Headers(),
		Columns:  columnar.CopyColumns(batch.Columns.ColumnsInOrder()),
	}

	c.mu.Lock()
	c.batches = append(c.batches, collected)
	c.mu.Unlock()
	return nil
}

// Batches returns the collected batches in flush order
func (c *Collector) Batches() []CollectedBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CollectedBatch, len(c.batches))
	copy(out, c.batches)
	return out
}

// Rows returns the total row count over every collected batch
func (c *Collector) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, b := range c.batches {
		total += b.Rows
	}
	return total
}

// Reset drops everything collected so far
func (c *Collector) Reset() {
	c.mu.Lock()
	c.batches = nil
	c.mu.Unlock()
}
