package stream

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"

	"github.com/ssargent/marcstream/pkg/marc"
)

// RecordWriter handles append-only writes of serialized MARC-21 records
type RecordWriter struct {
	file   *os.File
	writer *bufio.Writer
	config WriterConfig
	mutex  sync.Mutex
	offset int64 // Current write offset
}

// NewRecordWriter creates a new record writer with the given configuration
func NewRecordWriter(config WriterConfig) (*RecordWriter, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}

	return &RecordWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufSize),
		config: config,
		offset: stat.Size(),
	}, nil
}

// Append serializes a record and writes it to the stream, returning the
// offset the record starts at.
func (w *RecordWriter) Append(record *marc.Record) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	data, err := record.MARC()
	if err != nil {
		return 0, err
	}
	start := w.offset
	if _, err := w.writer.Write(data); err != nil {
		return 0, err
	}
	w.offset += int64(len(data))
	return start, nil
}

// Flush writes any buffered records through to the file.
func (w *RecordWriter) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writer.Flush()
}

// Offset returns the current write offset.
func (w *RecordWriter) Offset() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Close flushes buffered data and closes the file.
func (w *RecordWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
