package stream

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/marcstream/pkg/codec"
	"github.com/ssargent/marcstream/pkg/marc"
)

const (
	// MinBufferSize is the smallest usable scan buffer. The MARC-21
	// record length field is five decimal digits, so no record exceeds
	// 99999 bytes.
	MinBufferSize = 100000
	// DefaultBufferSize is the scan buffer used when none is configured.
	DefaultBufferSize = 10 << 20
)

// RecordReader provides sequential access to the records of a MARC-21
// transmission file. It frames records by scanning for the Record
// Terminator, holding at most one record in memory at a time.
//
// A reader is single-use: once the stream is exhausted, further
// iteration reports ErrEndOfStream.
type RecordReader struct {
	file        *os.File
	codec       *codec.RecordCodec
	config      ReaderConfig
	buf         []byte
	size        int64
	pos         int64
	recordStart int64
	record      *marc.Record
	errs        []error
	err         error
	done        bool
	closed      bool
}

// OpenReader opens a MARC-21 file for streaming.
func OpenReader(config ReaderConfig) (*RecordReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open marc stream: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open marc stream: %w", err)
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if bufSize < MinBufferSize {
		bufSize = MinBufferSize
	}

	recordCodec := codec.NewRecordCodec()
	recordCodec.ForceUTF8 = config.ForceUTF8

	return &RecordReader{
		file:   file,
		codec:  recordCodec,
		config: config,
		buf:    make([]byte, bufSize),
		size:   stat.Size(),
	}, nil
}

// Next advances to the next record in the stream. It returns false when
// the stream is exhausted or a fatal error occurred; check Err.
//
// When SkipOnError is set, a record that fails to decode still occupies
// its slot in the iteration: Next returns true, Record returns nil, and
// the failure is appended to Errs. Consumers are expected to filter.
func (r *RecordReader) Next() bool {
	if r.done {
		r.err = ErrEndOfStream
		return false
	}
	if r.closed {
		return false
	}
	r.record = nil

	accumulated := 0
	for r.pos < r.size {
		n, err := r.file.Read(r.buf)
		if n == 0 {
			if err == io.EOF {
				break
			}
			r.fail(fmt.Errorf("read marc stream: %w", err))
			return false
		}
		r.pos += int64(n)

		terminator := bytes.IndexByte(r.buf[:n], marc.RecordTerminator)
		if terminator < 0 {
			accumulated += n
			continue
		}

		recordLen := accumulated + terminator + 1
		if _, err := r.file.Seek(r.recordStart, io.SeekStart); err != nil {
			r.fail(fmt.Errorf("seek marc stream: %w", err))
			return false
		}
		data := make([]byte, recordLen)
		if _, err := io.ReadFull(r.file, data); err != nil {
			// A terminator was just observed, so the bytes must exist.
			r.fail(fmt.Errorf("record at offset %d: %w", r.recordStart, ErrUnexpectedEOF))
			return false
		}
		r.recordStart += int64(recordLen)
		r.pos = r.recordStart

		record, err := r.codec.Decode(data)
		if err != nil {
			if r.config.SkipOnError {
				r.errs = append(r.errs, err)
				return true
			}
			r.fail(err)
			return false
		}
		r.record = record
		return true
	}

	r.done = true
	r.closeStream()
	return false
}

// Record returns the record produced by the last call to Next, or nil
// for a slot that was skipped under SkipOnError.
func (r *RecordReader) Record() *marc.Record {
	return r.record
}

// Err returns the fatal error that stopped iteration, if any.
func (r *RecordReader) Err() error {
	return r.err
}

// Errs returns the decode failures captured under SkipOnError.
func (r *RecordReader) Errs() []error {
	return r.errs
}

// Progress reports how far iteration has advanced through the stream,
// in [0, 1].
func (r *RecordReader) Progress() float64 {
	if r.size == 0 {
		return 1
	}
	return float64(r.pos) / float64(r.size)
}

// Close releases the underlying stream. Closing an already closed
// reader is a no-op.
func (r *RecordReader) Close() error {
	if r.closed {
		return nil
	}
	return r.closeStream()
}

func (r *RecordReader) fail(err error) {
	r.err = err
	r.closeStream()
}

func (r *RecordReader) closeStream() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
