// Package codec deserializes MARC-21 transmission records into the
// typed model of pkg/marc.
//
// The codec implements the read side of ISO 2709: it validates the
// 24-byte leader, walks the directory, and splits the variable fields
// on their terminators. This is the foundation for marcstream's
// streaming reader.
//
// # Record Format
//
// Records arrive in the following structure:
//
//	[Leader(24)][Directory(12 x n)][FT][Field]...[Field][RT]
//
// Fields:
//   - Leader: positions 0-4 carry the record length and 12-16 the base
//     address of data, both as ASCII decimal digits; position 9 selects
//     the character encoding (blank = MARC-8, anything else = UTF-8)
//   - Directory: one 12-byte entry per field: tag (3), length (4),
//     offset (5)
//   - Control fields (tag below 010): raw data
//   - Data fields: two indicators, then subfields introduced by SD and
//     a one-character code
//
// Terminators: RT = 0x1D, FT = 0x1E, SD = 0x1F.
//
// # Usage
//
// Basic decoding:
//
//	codec := codec.NewRecordCodec()
//
//	// Decode raw transmission bytes, honoring the declared encoding
//	record, err := codec.Decode(buf)
//	if err != nil {
//	    return err
//	}
//
//	// Or decode an already character-decoded string
//	record, err = codec.DecodeString(s)
//	if err != nil {
//	    return err
//	}
//
//	for _, warning := range record.Warnings() {
//	    fmt.Println(warning)
//	}
//
// # Error Handling
//
// Only three conditions are fatal to a record: an invalid leader, a
// non-numeric directory tag, and a directory whose entry count does not
// match the number of field payloads. Every other anomaly (missing
// record terminator, oversized directory, malformed indicators,
// zero-length subfields) is recorded as a plain-text warning on the
// returned record so callers can audit data quality without losing
// records.
//
// # Thread Safety
//
// RecordCodec instances are safe for concurrent use once configured.
// Decoded records are independent values owned by the caller.
package codec
