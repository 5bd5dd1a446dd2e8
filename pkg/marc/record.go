package marc

import (
	"bytes"
	"fmt"
)

// defaultLeader is the skeleton used when a record was built
// programmatically and never given a leader. Length and base address are
// recomputed on serialization.
const defaultLeader = "00000nam a2200000   4500"

// Record is a single MARC-21 bibliographic unit: a 24-character leader,
// an ordered sequence of variable fields, and the warnings accumulated
// while the record was deserialized.
//
// The tag index is a derived view over the ordered field sequence; it
// stores positions rather than field references and is kept consistent
// by Add and Remove.
type Record struct {
	leader   string
	fields   []Field
	warnings []string
	byTag    map[string][]int
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{
		byTag: make(map[string][]int),
	}
}

// Leader returns the 24-character leader, or the empty string when the
// record has not been given one.
func (r *Record) Leader() string {
	return r.leader
}

// SetLeader stores the leader string.
func (r *Record) SetLeader(leader string) {
	r.leader = leader
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.fields)
}

// Warnings returns the warnings accumulated during deserialization.
func (r *Record) Warnings() []string {
	return r.warnings
}

// AddWarning appends a warning. Warnings are append-only.
func (r *Record) AddWarning(warning string) {
	r.warnings = append(r.warnings, warning)
}

// Add appends a field to the ordered sequence and to its tag bucket.
func (r *Record) Add(f Field) {
	r.fields = append(r.fields, f)
	r.byTag[f.Tag()] = append(r.byTag[f.Tag()], len(r.fields)-1)
}

// Remove removes a field by identity from both the ordered sequence and
// the tag index. It reports whether the field was present.
func (r *Record) Remove(f Field) bool {
	pos := -1
	for i, existing := range r.fields {
		if existing == f {
			pos = i
			break
		}
	}
	if pos < 0 {
		return false
	}
	r.fields = append(r.fields[:pos], r.fields[pos+1:]...)
	r.reindex()
	return true
}

// reindex rebuilds the tag index from the ordered field sequence.
func (r *Record) reindex() {
	r.byTag = make(map[string][]int, len(r.byTag))
	for i, f := range r.fields {
		r.byTag[f.Tag()] = append(r.byTag[f.Tag()], i)
	}
}

// GetFields returns the fields bearing the given tag in insertion order.
// An empty tag returns every field in insertion order.
func (r *Record) GetFields(tag string) []Field {
	if tag == "" {
		out := make([]Field, len(r.fields))
		copy(out, r.fields)
		return out
	}
	positions := r.byTag[tag]
	if len(positions) == 0 {
		return nil
	}
	out := make([]Field, 0, len(positions))
	for _, i := range positions {
		out = append(out, r.fields[i])
	}
	return out
}

// FieldAt returns the i-th field in insertion order. The index must
// satisfy 0 <= i < Len().
func (r *Record) FieldAt(i int) (Field, error) {
	if i < 0 || i >= len(r.fields) {
		return nil, ErrOutOfRange
	}
	return r.fields[i], nil
}

// MARC serializes the record to MARC-21 bytes. The record length and
// base address in the leader are recomputed; the remaining leader
// positions are taken from the stored leader, or from a default skeleton
// when none was set. Each directory entry's length counts the field data
// without its trailing field terminator; its offset is the field's
// physical position from the base address.
func (r *Record) MARC() ([]byte, error) {
	var dir bytes.Buffer
	var data bytes.Buffer

	offset := 0
	for _, f := range r.fields {
		payload := encodeField(f)
		length := len(payload) - 1
		if length > 9999 || offset > 99999 {
			return nil, ErrFieldTooLong
		}
		fmt.Fprintf(&dir, "%s%04d%05d", f.Tag(), length, offset)
		data.Write(payload)
		offset += len(payload)
	}

	base := LeaderLength + dir.Len() + 1
	total := base + data.Len() + 1
	if total > 99999 {
		return nil, ErrFieldTooLong
	}

	leader := r.leader
	if len(leader) != LeaderLength {
		leader = defaultLeader
	}
	out := make([]byte, 0, total)
	out = append(out, fmt.Sprintf("%05d", total)...)
	out = append(out, leader[5:12]...)
	out = append(out, fmt.Sprintf("%05d", base)...)
	out = append(out, leader[17:]...)
	out = append(out, dir.Bytes()...)
	out = append(out, FieldTerminator)
	out = append(out, data.Bytes()...)
	out = append(out, RecordTerminator)
	return out, nil
}

// encodeField serializes a single variable field including its trailing
// field terminator.
func encodeField(f Field) []byte {
	var buf bytes.Buffer
	switch field := f.(type) {
	case *ControlField:
		buf.WriteString(field.Data)
	case *DataField:
		buf.WriteByte(indicatorByte(field.Indicator1))
		buf.WriteByte(indicatorByte(field.Indicator2))
		for _, sf := range field.subfields {
			buf.WriteByte(SubfieldDelimiter)
			buf.WriteByte(sf.Code)
			buf.WriteString(sf.Data)
		}
	}
	buf.WriteByte(FieldTerminator)
	return buf.Bytes()
}

// indicatorByte maps the zero value to a blank indicator.
func indicatorByte(b byte) byte {
	if b == 0 {
		return ' '
	}
	return b
}

// Equal reports whether two records serialize to byte-equal MARC-21.
func (r *Record) Equal(other *Record) bool {
	if other == nil {
		return false
	}
	a, err := r.MARC()
	if err != nil {
		return false
	}
	b, err := other.MARC()
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}
