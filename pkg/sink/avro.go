package sink

import (
	"io"
	"strconv"
	"strings"
	"sync"

	gojson "github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/colbatch/pkg/errors"
	"github.com/ajitpratap0/colbatch/pkg/processor"
)

// AvroWriter writes an Avro object container file holding one record per
// batch. Each column becomes a field of type array of ["null","string"]; the
// schema is taken from the first batch.
type AvroWriter struct {
	mu          sync.Mutex
	w           io.Writer
	compression string
	fields      []string
	ocf         *goavro.OCFWriter
	records     int64
}

// AvroOption configures an AvroWriter
type AvroOption func(*AvroWriter)

// WithAvroCompression sets the OCF block codec: "null", "deflate" or "snappy"
func WithAvroCompression(name string) AvroOption {
	return func(aw *AvroWriter) {
		aw.compression = name
	}
}

// NewAvroWriter creates an Avro OCF writer on w
func NewAvroWriter(w io.Writer, opts ...AvroOption) *AvroWriter {
	aw := &AvroWriter{
		w:           w,
		compression: goavro.CompressionNullLabel,
	}
	for _, opt := range opts {
		opt(aw)
	}
	return aw
}

// BatchProcessed appends the batch as one Avro record
func (aw *AvroWriter) BatchProcessed(rows int, batch processor.Batch) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	columns := batch.Columns.ColumnsInOrder()
	if aw.ocf == nil {
		if err := aw.open(batch.Columns.Headers(), len(columns)); err != nil {
			return err
		}
	}
	if len(columns) != len(aw.fields) {
		return errors.Newf(errors.ErrorTypeData, "batch %d has %d columns, stream schema has %d",
			batch.Sequence, len(columns), len(aw.fields))
	}

	record := make(map[string]interface{}, len(columns))
	for i, values := range columns {
		items := make([]interface{}, len(values))
		for j, v := range values {
			if v == nil {
				items[j] = nil
			} else {
				items[j] = goavro.Union("string", *v)
			}
		}
		record[aw.fields[i]] = items
	}

	if err := aw.ocf.Append([]interface{}{record}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write avro record")
	}
	aw.records++
	return nil
}

func (aw *AvroWriter) open(headers []string, count int) error {
	aw.fields = avroFieldNames(fieldNames(headers, count))

	schema, err := avroSchema(aw.fields)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to build avro schema")
	}
	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create avro codec")
	}

	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               aw.w,
		Codec:           codec,
		CompressionName: aw.compression,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to create avro writer")
	}
	aw.ocf = ocf
	return nil
}

// Fields returns the Avro field names, nil before the first batch
func (aw *AvroWriter) Fields() []string {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return append([]string(nil), aw.fields...)
}

// RecordsWritten returns the number of records appended
func (aw *AvroWriter) RecordsWritten() int64 {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.records
}

func avroSchema(fields []string) (string, error) {
	type avroField struct {
		Name string      `json:"name"`
		Type interface{} `json:"type"`
	}
	list := make([]avroField, len(fields))
	for i, name := range fields {
		list[i] = avroField{
			Name: name,
			Type: map[string]interface{}{
				"type":  "array",
				"items": []string{"null", "string"},
			},
		}
	}

	raw, err := gojson.Marshal(map[string]interface{}{
		"type":      "record",
		"name":      "Batch",
		"namespace": "colbatch",
		"fields":    list,
	})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// avroFieldNames turns column names into unique Avro identifiers:
// [A-Za-z_][A-Za-z0-9_]*
func avroFieldNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		var b strings.Builder
		for j, r := range name {
			switch {
			case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
				b.WriteRune(r)
			case r >= '0' && r <= '9':
				if j == 0 {
					b.WriteByte('_')
				}
				b.WriteRune(r)
			default:
				b.WriteByte('_')
			}
		}
		candidate := b.String()
		if candidate == "" {
			candidate = "column_" + strconv.Itoa(i)
		}
		for seen[candidate] {
			candidate += "_" + strconv.Itoa(i)
		}
		seen[candidate] = true
		out[i] = candidate
	}
	return out
}
