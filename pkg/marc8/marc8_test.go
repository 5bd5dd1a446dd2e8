package marc8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, data []byte) string {
	t.Helper()
	out, err := NewAnselDecoder().Decode(data)
	require.NoError(t, err)
	return out
}

func TestAnselDecoder_ASCII(t *testing.T) {
	assert.Equal(t, "plain ascii 123", decode(t, []byte("plain ascii 123")))
}

func TestAnselDecoder_ControlBytesPassThrough(t *testing.T) {
	// Terminators must survive decoding so the directory structure
	// stays intact.
	assert.Equal(t, "a\x1db\x1ec\x1fd", decode(t, []byte("a\x1db\x1ec\x1fd")))
}

func TestAnselDecoder_SpacingCharacters(t *testing.T) {
	assert.Equal(t, "prøve", decode(t, []byte{'p', 'r', 0xB2, 'v', 'e'}))
	assert.Equal(t, "Lodz costs £5", decode(t, append([]byte("Lodz costs "), 0xB9, '5')))
}

func TestAnselDecoder_CombiningMarkFollowsBase(t *testing.T) {
	// MARC-8 puts the acute accent before the 'e'; Unicode puts the
	// combining mark after it.
	assert.Equal(t, "café", decode(t, []byte{'c', 'a', 'f', 0xE2, 'e'}))
}

func TestAnselDecoder_EscapeSequences(t *testing.T) {
	t.Run("designating ascii twice is harmless", func(t *testing.T) {
		assert.Equal(t, "ab", decode(t, []byte{'a', 0x1B, 's', 'b'}))
	})

	t.Run("greek designation yields replacement runes", func(t *testing.T) {
		out := decode(t, []byte{0x1B, 'g', 'a', 0x1B, 's', 'b'})
		assert.Equal(t, "�b", out)
	})

	t.Run("dangling escape at end of input is dropped", func(t *testing.T) {
		assert.Equal(t, "ab", decode(t, []byte{'a', 'b', 0x1B}))
	})

	t.Run("g1 redesignation", func(t *testing.T) {
		// Designate G1 to an unsupported set, then back to ANSEL.
		data := []byte{0x1B, ')', 'N', 0xB2, 0x1B, ')', 'E', 0xB2}
		assert.Equal(t, "�ø", decode(t, data))
	})
}

func TestAnselDecoder_UndefinedBytes(t *testing.T) {
	// C1 range and unmapped ANSEL positions decode to the replacement
	// character rather than producing invalid UTF-8.
	out := decode(t, []byte{0x85, 0xFF})
	assert.Equal(t, "��", out)
}
