package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aluiziolira/go-scrape-detmir/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Delimiter separates fields in the CSV output.
const Delimiter = ';'

var csvHeader = []string{"id", "title", "price", "promo_price", "url", "city"}

// CSVWriter writes records as a semicolon separated table encoded in
// windows-1251. Characters outside that code page are replaced.
type CSVWriter struct {
	path    string
	file    *os.File
	encoder *transform.Writer
	writer  *csv.Writer
	written int
	mu      sync.Mutex
}

// NewCSVWriter truncates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create csv file: %w", err)
	}

	encoder := transform.NewWriter(f, encoding.ReplaceUnsupported(charmap.Windows1251.NewEncoder()))
	writer := csv.NewWriter(encoder)
	writer.Comma = Delimiter
	if err := writer.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		path:    filename,
		file:    f,
		encoder: encoder,
		writer:  writer,
	}, nil
}

// Write appends records to the CSV output.
func (cw *CSVWriter) Write(records []models.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, rec := range records {
		row := []string{rec.ID, rec.Title, rec.Price, rec.PromoPrice, rec.URL, rec.City}
		if err := cw.writer.Write(row); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
		cw.written++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes the encoder and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv writer: %w", err)
	}
	if err := cw.encoder.Close(); err != nil {
		cw.file.Close()
		return fmt.Errorf("flush csv encoder: %w", err)
	}
	return cw.file.Close()
}

// Validate reads the closed file back and checks the row count.
func (cw *CSVWriter) Validate() error {
	records, err := ReadCSV(cw.path)
	if err != nil {
		return err
	}
	cw.mu.Lock()
	written := cw.written
	cw.mu.Unlock()
	if len(records) != written {
		return fmt.Errorf("csv file has %d rows, wrote %d", len(records), written)
	}
	return nil
}

// ReadCSV decodes a table produced by CSVWriter.
func ReadCSV(filename string) ([]models.Record, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()
	return decodeCSV(f)
}

func decodeCSV(r io.Reader) ([]models.Record, error) {
	reader := csv.NewReader(transform.NewReader(r, charmap.Windows1251.NewDecoder()))
	reader.Comma = Delimiter
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if !slices.Equal(header, csvHeader) {
		return nil, fmt.Errorf("unexpected csv header %v", header)
	}

	var out []models.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		out = append(out, models.Record{
			ID:         row[0],
			Title:      row[1],
			Price:      row[2],
			PromoPrice: row[3],
			URL:        row[4],
			City:       row[5],
		})
	}
	return out, nil
}

// JSONWriter writes newline-delimited JSON records.
type JSONWriter struct {
	path    string
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		path:    filename,
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends records in JSONL format.
func (jw *JSONWriter) Write(records []models.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, rec := range records {
		if err := jw.encoder.Encode(rec); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		jw.file.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSON file exists. An empty run legitimately
// produces an empty file.
func (jw *JSONWriter) Validate() error {
	if _, err := os.Stat(jw.path); err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
