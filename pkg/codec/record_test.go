package codec

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/marcstream/pkg/marc"
)

const validRecord = "00043    82200037   4500001000400000\x1eaaaa\x1e\x1d"

// rawField is a directory entry plus its payload (without the trailing
// field terminator) for hand-built test records.
type rawField struct {
	tag     string
	payload string
}

// buildRaw assembles a syntactically complete record around the given
// fields, recomputing leader lengths and directory offsets.
func buildRaw(fields ...rawField) string {
	var dir, data strings.Builder
	offset := 0
	for _, f := range fields {
		length := len(f.payload) + 1
		fmt.Fprintf(&dir, "%s%04d%05d", f.tag, length, offset)
		data.WriteString(f.payload)
		data.WriteByte(marc.FieldTerminator)
		offset += length
	}
	base := marc.LeaderLength + dir.Len() + 1
	total := base + data.Len() + 1
	return fmt.Sprintf("%05d    822%05d   4500%s\x1e%s\x1d", total, base, dir.String(), data.String())
}

func TestDecodeString_SingleControlField(t *testing.T) {
	codec := NewRecordCodec()

	record, err := codec.DecodeString(validRecord)
	require.NoError(t, err)

	assert.Equal(t, "00043    82200037   4500", record.Leader())
	assert.Empty(t, record.Warnings())
	require.Equal(t, 1, record.Len())

	field, ok := record.GetFields("001")[0].(*marc.ControlField)
	require.True(t, ok)
	assert.Equal(t, "aaaa", field.Data)

	// Round trip reproduces the source bytes.
	data, err := record.MARC()
	require.NoError(t, err)
	assert.Equal(t, validRecord, string(data))
}

func TestDecodeString_MissingRecordTerminator(t *testing.T) {
	codec := NewRecordCodec()

	record, err := codec.DecodeString("00042    82200037   4500001000400000\x1eaaaa\x1e")
	require.NoError(t, err)

	require.Equal(t, 1, record.Len())
	assert.Equal(t, []string{"Record does not end with a Record Terminator (hex 1D)."}, record.Warnings())
}

func TestDecodeString_InvalidLeader(t *testing.T) {
	codec := NewRecordCodec()

	tests := []struct {
		name  string
		input string
	}{
		{"non-digit length", "0004x" + validRecord[5:]},
		{"reported length exceeds string", "00099" + validRecord[5:]},
		{"not ending in 4500", validRecord[:20] + "9999" + validRecord[24:]},
		{"no terminator before base address", strings.Replace(validRecord, "\x1eaaaa", "xaaaa", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.DecodeString(tt.input)
			assert.ErrorIs(t, err, ErrInvalidLeader)
		})
	}
}

func TestDecodeString_InvalidTag(t *testing.T) {
	codec := NewRecordCodec()

	input := strings.Replace(buildRaw(rawField{"001", "aaaa"}), "001000500000", "0x1000500000", 1)
	_, err := codec.DecodeString(input)
	assert.ErrorIs(t, err, marc.ErrInvalidTag)
}

func TestDecodeString_DirectoryMismatch(t *testing.T) {
	codec := NewRecordCodec()

	// Two directory entries, one payload.
	base := 24 + 2*12 + 1
	data := "aaaa\x1e"
	total := base + len(data) + 1
	input := fmt.Sprintf("%05d    822%05d   4500%s%s\x1e%s\x1d",
		total, base, "001000500000", "005000500005", data)
	_, err := codec.DecodeString(input)
	assert.ErrorIs(t, err, ErrDirectoryMismatch)
}

func TestDecodeString_DirectoryExtraCharacters(t *testing.T) {
	codec := NewRecordCodec()

	// Append two junk characters to an otherwise valid directory.
	valid := buildRaw(rawField{"001", "aaaa"})
	dirEnd := strings.IndexByte(valid, marc.FieldTerminator)
	input := valid[:dirEnd] + "XX" + valid[dirEnd:]
	// Patch the reported length and base address for the two extra bytes.
	input = fmt.Sprintf("%05d%s%05d%s", len(input), input[5:12], dirEnd+2+1, input[17:])

	record, err := codec.DecodeString(input)
	require.NoError(t, err)
	assert.Equal(t, []string{"Directory contains 2 extra character(s). Removing extra characters"}, record.Warnings())
	require.Equal(t, 1, record.Len())
}

func TestDecodeString_DataField(t *testing.T) {
	codec := NewRecordCodec()

	record, err := codec.DecodeString(buildRaw(
		rawField{"245", "10\x1faGo in practice\x1fcby nobody"},
	))
	require.NoError(t, err)
	assert.Empty(t, record.Warnings())

	field, ok := record.GetFields("245")[0].(*marc.DataField)
	require.True(t, ok)
	assert.Equal(t, byte('1'), field.Indicator1)
	assert.Equal(t, byte('0'), field.Indicator2)
	require.Equal(t, 2, field.Len())
	assert.Equal(t, "Go in practice", field.Subfields('a')[0].Data)
}

func TestDecodeString_IndicatorCoercion(t *testing.T) {
	codec := NewRecordCodec()

	t.Run("segment of wrong length forces both blank", func(t *testing.T) {
		record, err := codec.DecodeString(buildRaw(rawField{"245", "1\x1faX"}))
		require.NoError(t, err)

		field := record.GetFields("245")[0].(*marc.DataField)
		assert.Equal(t, byte(' '), field.Indicator1)
		assert.Equal(t, byte(' '), field.Indicator2)
		require.Len(t, record.Warnings(), 1)
		assert.Contains(t, record.Warnings()[0], "invalid indicators")
	})

	t.Run("invalid character coerced per indicator", func(t *testing.T) {
		record, err := codec.DecodeString(buildRaw(rawField{"245", "%$\x1faX"}))
		require.NoError(t, err)

		field := record.GetFields("245")[0].(*marc.DataField)
		assert.Equal(t, byte(' '), field.Indicator1)
		assert.Equal(t, byte(' '), field.Indicator2)
		assert.Len(t, record.Warnings(), 2)
	})

	t.Run("uppercase is lowercased silently", func(t *testing.T) {
		record, err := codec.DecodeString(buildRaw(rawField{"245", "A1\x1faX"}))
		require.NoError(t, err)

		field := record.GetFields("245")[0].(*marc.DataField)
		assert.Equal(t, byte('a'), field.Indicator1)
		assert.Equal(t, byte('1'), field.Indicator2)
		assert.Empty(t, record.Warnings())
	})
}

func TestDecodeString_SubfieldAnomalies(t *testing.T) {
	codec := NewRecordCodec()

	t.Run("zero-length subfield skipped with warning", func(t *testing.T) {
		record, err := codec.DecodeString(buildRaw(rawField{"245", "10\x1f\x1faX"}))
		require.NoError(t, err)

		field := record.GetFields("245")[0].(*marc.DataField)
		assert.Equal(t, 1, field.Len())
		require.Len(t, record.Warnings(), 1)
		assert.Contains(t, record.Warnings()[0], "zero length")
	})

	t.Run("no subfields warns once", func(t *testing.T) {
		record, err := codec.DecodeString(buildRaw(rawField{"245", "10"}))
		require.NoError(t, err)

		field := record.GetFields("245")[0].(*marc.DataField)
		assert.True(t, field.Empty())
		require.Len(t, record.Warnings(), 1)
		assert.Contains(t, record.Warnings()[0], "no subfields")
	})
}

func TestDecode_BytesAndStringAgree(t *testing.T) {
	codec := NewRecordCodec()

	fromBytes, err := codec.Decode([]byte(validRecord))
	require.NoError(t, err)
	fromString, err := codec.DecodeString(validRecord)
	require.NoError(t, err)

	assert.True(t, fromBytes.Equal(fromString))
}

func TestDecode_BOMStripped(t *testing.T) {
	codec := NewRecordCodec()

	record, err := codec.Decode(append([]byte{0xEF, 0xBB, 0xBF}, validRecord...))
	require.NoError(t, err)
	assert.Equal(t, 1, record.Len())
}

// fixedDecoder is a stand-in MARC-8 decoder that records whether it was
// invoked.
type fixedDecoder struct {
	output string
	called bool
}

func (d *fixedDecoder) Decode(data []byte) (string, error) {
	d.called = true
	return d.output, nil
}

func TestDecode_EncodingSelection(t *testing.T) {
	// Blank leader byte 9 selects the MARC-8 decoder.
	marc8Record := strings.Replace(validRecord, "    822", "     22", 1)
	require.Equal(t, byte(' '), marc8Record[9])

	t.Run("blank byte 9 routes through marc8", func(t *testing.T) {
		decoder := &fixedDecoder{output: validRecord}
		codec := NewRecordCodec()
		codec.Marc8 = decoder

		record, err := codec.Decode([]byte(marc8Record))
		require.NoError(t, err)
		assert.True(t, decoder.called)
		assert.Equal(t, 1, record.Len())
	})

	t.Run("force utf8 bypasses marc8", func(t *testing.T) {
		decoder := &fixedDecoder{output: validRecord}
		codec := NewRecordCodec()
		codec.Marc8 = decoder
		codec.ForceUTF8 = true

		record, err := codec.Decode([]byte(marc8Record))
		require.NoError(t, err)
		assert.False(t, decoder.called)
		assert.Equal(t, 1, record.Len())
	})

	t.Run("default ansel decoder handles ascii transparently", func(t *testing.T) {
		codec := NewRecordCodec()
		record, err := codec.Decode([]byte(marc8Record))
		require.NoError(t, err)
		assert.Equal(t, "aaaa", record.GetFields("001")[0].(*marc.ControlField).Data)
	})
}

func TestDecode_TooShort(t *testing.T) {
	codec := NewRecordCodec()
	_, err := codec.Decode([]byte("0001"))
	assert.ErrorIs(t, err, ErrInvalidLeader)
}
