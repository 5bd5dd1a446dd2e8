// Package marc8 decodes MARC-8 encoded bytes into UTF-8 strings.
//
// MARC-8 is the legacy character encoding of MARC-21: a single-byte
// scheme where escape sequences switch the working graphic sets and
// combining diacritics precede the base character they modify. The
// Decoder interface keeps the codepage implementation swappable; the
// default decoder covers the ASCII and ANSEL sets, which account for
// nearly all MARC-8 data in the wild.
package marc8

import (
	"golang.org/x/text/transform"
)

// Decoder converts MARC-8 encoded bytes to a UTF-8 string.
type Decoder interface {
	Decode(data []byte) (string, error)
}

// AnselDecoder is the default MARC-8 decoder. It understands the ASCII
// and ANSEL graphic sets, escape-driven set switching, and the
// diacritic-before-base convention. Bytes from undesignated or
// unsupported sets decode to the Unicode replacement character.
type AnselDecoder struct{}

// NewAnselDecoder creates the default decoder.
func NewAnselDecoder() *AnselDecoder {
	return &AnselDecoder{}
}

// Decode converts MARC-8 bytes to a UTF-8 string.
func (d *AnselDecoder) Decode(data []byte) (string, error) {
	out, _, err := transform.Bytes(&anselTransformer{}, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
