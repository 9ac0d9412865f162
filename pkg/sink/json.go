package sink

import (
	"io"
	"sync"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

type jsonBatch struct {
	Batch   int         `json:"batch"`
	Rows    int         `json:"rows"`
	Final   bool        `json:"final,omitempty"`
	Headers []string    `json:"headers"`
	Columns [][]*string `json:"columns"`
}

// JSONWriter writes every batch as one JSON object per line:
//
//	{"batch":0,"rows":2,"headers":["id","name"],"columns":[["1","2"],["ada",null]]}
type JSONWriter struct {
	mu      sync.Mutex
	enc     *gojson.Encoder
	batches int64
}

// NewJSONWriter creates a JSON-lines writer on w
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: gojson.NewEncoder(w)}
}

// BatchProcessed encodes the batch. Encoding finishes before the call
// returns, so nothing aliases the processor's storage afterwards.
func (j *JSONWriter) BatchProcessed(rows int, batch processor.Batch) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	headers := batch.Columns.Headers()
	if headers == nil {
		headers = []string{}
	}

	err := j.enc.Encode(jsonBatch{
		Batch:   batch.Sequence,
		Rows:    rows,
		Final:   batch.Final,
		Headers: headers,
		Columns: batch.Columns.ColumnsInOrder(),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write JSON batch")
	}
	j.batches++
	return nil
}

// BatchesWritten returns the number of batches encoded
func (j *JSONWriter) BatchesWritten() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.batches
}
