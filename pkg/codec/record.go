package codec

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ssargent/marcstream/pkg/marc"
	"github.com/ssargent/marcstream/pkg/marc8"
)

// Errors
var (
	ErrInvalidLeader     = &DecodeError{"invalid leader"}
	ErrDirectoryMismatch = &DecodeError{"directory entry count does not match field count"}
)

// DecodeError represents a fatal record decoding error
type DecodeError struct {
	Message string
}

func (e *DecodeError) Error() string {
	return e.Message
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RecordCodec decodes MARC-21 records from their transmission format
type RecordCodec struct {
	// ForceUTF8 decodes every record as UTF-8 regardless of the
	// character coding scheme declared at leader position 9.
	ForceUTF8 bool
	// Marc8 decodes legacy MARC-8 records. Defaults to the ANSEL
	// decoder from pkg/marc8.
	Marc8 marc8.Decoder
}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{Marc8: marc8.NewAnselDecoder()}
}

// Decode deserializes one MARC-21 record from its raw bytes. Leader
// position 9 selects the encoding: blank means MARC-8, anything else
// UTF-8. A leading UTF-8 BOM is stripped.
func (c *RecordCodec) Decode(data []byte) (*marc.Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(data) < marc.LeaderLength {
		return nil, fmt.Errorf("record of %d bytes is shorter than a leader: %w", len(data), ErrInvalidLeader)
	}
	physical := len(data)
	if data[9] == ' ' && !c.ForceUTF8 {
		decoder := c.Marc8
		if decoder == nil {
			decoder = marc8.NewAnselDecoder()
		}
		s, err := decoder.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("marc8 decode: %w", err)
		}
		return c.decode(s, physical)
	}
	return c.decode(string(data), physical)
}

// DecodeString deserializes one MARC-21 record from an already decoded
// string.
func (c *RecordCodec) DecodeString(s string) (*marc.Record, error) {
	return c.decode(s, -1)
}

// decode is the common core of both entry points. Fatal structural
// problems return an error; everything recoverable becomes a warning on
// the returned record.
func (c *RecordCodec) decode(s string, physical int) (*marc.Record, error) {
	if !marc.LeaderValid(s, physical) {
		return nil, fmt.Errorf("%q: %w", leaderPrefix(s), ErrInvalidLeader)
	}

	record := marc.NewRecord()
	record.SetLeader(s[:marc.LeaderLength])

	if strings.HasSuffix(s, string(rune(marc.RecordTerminator))) {
		s = s[:len(s)-1]
	} else {
		record.AddWarning("Record does not end with a Record Terminator (hex 1D).")
	}

	parts := strings.Split(s[marc.LeaderLength:], string(rune(marc.FieldTerminator)))
	if len(parts) > 1 && parts[len(parts)-1] == "" {
		// The last field's terminator produces an empty trailing element.
		parts = parts[:len(parts)-1]
	}
	directory := parts[0]
	payloads := parts[1:]

	if extra := len(directory) % marc.DirectoryEntryLength; extra != 0 {
		record.AddWarning(fmt.Sprintf("Directory contains %d extra character(s). Removing extra characters", extra))
		directory = directory[:len(directory)-extra]
	}

	entries := len(directory) / marc.DirectoryEntryLength
	if entries != len(payloads) {
		return nil, fmt.Errorf("%d directory entries, %d field payloads: %w", entries, len(payloads), ErrDirectoryMismatch)
	}

	for i := 0; i < entries; i++ {
		entry := directory[i*marc.DirectoryEntryLength : (i+1)*marc.DirectoryEntryLength]
		tag := entry[:3]
		isControl, ok := marc.IsControlTag(tag)
		if !ok {
			return nil, fmt.Errorf("directory entry %d has tag %q: %w", i, tag, marc.ErrInvalidTag)
		}

		payload := strings.TrimSuffix(payloads[i], string(rune(marc.FieldTerminator)))
		if isControl {
			field, err := marc.NewControlField(tag, payload)
			if err != nil {
				return nil, err
			}
			record.Add(field)
			continue
		}

		field, err := c.decodeDataField(record, tag, payload)
		if err != nil {
			return nil, err
		}
		record.Add(field)
	}

	return record, nil
}

// decodeDataField parses a data field payload: the indicator segment
// followed by subfield-delimited segments.
func (c *RecordCodec) decodeDataField(record *marc.Record, tag, payload string) (*marc.DataField, error) {
	segments := strings.Split(payload, string(rune(marc.SubfieldDelimiter)))

	ind1, ind2 := decodeIndicators(record, tag, segments[0])
	field, err := marc.NewDataField(tag, ind1, ind2)
	if err != nil {
		return nil, err
	}

	for j, segment := range segments[1:] {
		if segment == "" {
			record.AddWarning(fmt.Sprintf("Field %s subfield #%d has zero length. Skipping it.", tag, j+1))
			continue
		}
		field.AddSubfield(segment[0], segment[1:])
	}
	if field.Empty() {
		record.AddWarning(fmt.Sprintf("Field %s has no subfields.", tag))
	}
	return field, nil
}

// decodeIndicators validates and coerces the two-character indicator
// segment. Anything malformed becomes a blank indicator plus a warning.
func decodeIndicators(record *marc.Record, tag, segment string) (byte, byte) {
	if utf8.RuneCountInString(segment) != 2 {
		record.AddWarning(fmt.Sprintf("Field %s has invalid indicators %q. Forcing indicators to blank blank.", tag, segment))
		return ' ', ' '
	}
	runes := []rune(segment)
	return coerceIndicator(record, tag, runes[0]), coerceIndicator(record, tag, runes[1])
}

func coerceIndicator(record *marc.Record, tag string, r rune) byte {
	r = unicode.ToLower(r)
	if r == ' ' {
		return ' '
	}
	if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
		record.AddWarning(fmt.Sprintf("Field %s has invalid indicator %q. Forcing it to blank.", tag, r))
		return ' '
	}
	return byte(r)
}

// leaderPrefix returns the would-be leader portion of s for error
// context.
func leaderPrefix(s string) string {
	if len(s) > marc.LeaderLength {
		return s[:marc.LeaderLength]
	}
	return s
}
