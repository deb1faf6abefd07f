package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/avasilkov/hltb-crawler/models"
	"github.com/avasilkov/hltb-crawler/parser"
)

// RecordWriter defines the interface for the output store.
type RecordWriter interface {
	Write(rec *models.Record) error
	Close() error
	Validate() error
}

// CSVWriter appends records to the delimited store. Every field is quoted,
// absent values are empty strings, and the header row is written only when
// the file is created, so successive runs keep appending to one table.
type CSVWriter struct {
	file   *os.File
	writer *bufio.Writer
	mu     sync.Mutex
}

// NewCSVWriter opens the store for appending, emitting the header first if
// the file is new.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}

	cw := &CSVWriter{
		file:   f,
		writer: bufio.NewWriter(f),
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() == 0 {
		if err := cw.writeRow(models.CSVHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		if err := cw.writer.Flush(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}
	return cw, nil
}

// Write appends one record to the store.
func (cw *CSVWriter) Write(rec *models.Record) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writeRow(recordFields(rec)); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	if err := cw.writer.Flush(); err != nil {
		return fmt.Errorf("flush csv record: %w", err)
	}
	return nil
}

// writeRow emits one always-quoted CSV row. encoding/csv only quotes when it
// must, and the store contract quotes every field, so the row encoding is
// done by hand.
func (cw *CSVWriter) writeRow(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := cw.writer.WriteByte(','); err != nil {
				return err
			}
		}
		if err := cw.writer.WriteByte('"'); err != nil {
			return err
		}
		for _, r := range field {
			if r == '"' {
				if _, err := cw.writer.WriteString(`""`); err != nil {
					return err
				}
				continue
			}
			if _, err := cw.writer.WriteRune(r); err != nil {
				return err
			}
		}
		if err := cw.writer.WriteByte('"'); err != nil {
			return err
		}
	}
	return cw.writer.WriteByte('\n')
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if err := cw.writer.Flush(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.file.Close()
}

// Validate ensures the store has content besides the header.
func (cw *CSVWriter) Validate() error {
	info, err := cw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// recordFields flattens a record into the store's fixed column order.
func recordFields(rec *models.Record) []string {
	fields := make([]string, 0, len(models.CSVHeader))
	fields = append(fields,
		strconv.Itoa(rec.ID),
		rec.Name,
		rec.ContentType,
		rec.Release.Date,
		rec.Release.Precision,
		rec.Release.Year,
		rec.Release.Month,
		rec.Release.Day,
	)
	for _, key := range models.TimeKeys {
		polled := ""
		if v, ok := rec.Polled[key]; ok {
			polled = strconv.Itoa(v)
		}
		avg := ""
		if v, ok := rec.Averages[key]; ok {
			avg = parser.FormatHours(v)
		}
		fields = append(fields, polled, avg)
	}
	return append(fields,
		rec.SourceURL,
		rec.CrawledAt.UTC().Format(time.RFC3339),
	)
}

// JSONWriter appends newline-delimited JSON records.
type JSONWriter struct {
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens a JSONL store for appending.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	return &JSONWriter{
		file:    f,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends one record in JSONL format.
func (jw *JSONWriter) Write(rec *models.Record) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.encoder.Encode(rec); err != nil {
		return fmt.Errorf("encode json record: %w", err)
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
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

// Validate ensures the JSONL store has data.
func (jw *JSONWriter) Validate() error {
	info, err := jw.file.Stat()
	if err != nil {
		return fmt.Errorf("stat json file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("json file is empty")
	}
	return nil
}

// DualWriter feeds both the CSV and the JSONL store.
type DualWriter struct {
	csvWriter  *CSVWriter
	jsonWriter *JSONWriter
	mu         sync.Mutex
}

// NewDualWriter creates writers for both output formats.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("create csv writer: %w", err)
	}
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("create json writer: %w", err)
	}
	return &DualWriter{
		csvWriter:  csvWriter,
		jsonWriter: jsonWriter,
	}, nil
}

// Write appends the record to both stores.
func (dw *DualWriter) Write(rec *models.Record) error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	if err := dw.csvWriter.Write(rec); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	if err := dw.jsonWriter.Write(rec); err != nil {
		return fmt.Errorf("json write: %w", err)
	}
	return nil
}

// Close closes both writers.
func (dw *DualWriter) Close() error {
	dw.mu.Lock()
	defer dw.mu.Unlock()

	var errs []error
	if err := dw.csvWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("csv close: %w", err))
	}
	if err := dw.jsonWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("json close: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("multiple errors: %v", errs)
	}
	return nil
}

// Validate validates both output files.
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("csv validation: %w", err))
	}
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("json validation: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %v", errs)
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
