package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-detmir/models"
)

// DualWriter fans one export out to several writers, by default the CSV
// table and its JSONL twin. Close and Validate run on every writer even
// when one of them fails; the errors are joined.
type DualWriter struct {
	writers []OutputWriter
}

// NewDualWriter opens the CSV table at csvFilename and JSON lines at
// jsonFilename.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		_ = csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}
	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// NewMultiWriter combines already opened writers.
func NewMultiWriter(writers ...OutputWriter) *DualWriter {
	return &DualWriter{writers: writers}
}

// Write stops at the first writer that fails.
func (dw *DualWriter) Write(records []models.Record) error {
	for i, w := range dw.writers {
		if err := w.Write(records); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

func (dw *DualWriter) Close() error {
	return dw.each("close", OutputWriter.Close)
}

func (dw *DualWriter) Validate() error {
	return dw.each("validate", OutputWriter.Validate)
}

func (dw *DualWriter) each(op string, fn func(OutputWriter) error) error {
	var errs []error
	for i, w := range dw.writers {
		if err := fn(w); err != nil {
			errs = append(errs, fmt.Errorf("%s writer %d: %w", op, i, err))
		}
	}
	return errors.Join(errs...)
}
