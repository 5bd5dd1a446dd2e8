package marc8

import (
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// Graphic set identifiers for the G0/G1 working sets.
const (
	setASCII = iota
	setAnsel
	setOther
)

// anselTransformer is a transform.Transformer over the MARC-8 byte
// stream. Diacritics precede their base character in MARC-8, so decoded
// combining marks are held back and emitted after the next base rune.
type anselTransformer struct {
	g0      int
	g1      int
	started bool
	pending []rune
}

func (t *anselTransformer) Reset() {
	t.g0 = setASCII
	t.g1 = setAnsel
	t.started = true
	t.pending = t.pending[:0]
}

func (t *anselTransformer) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if !t.started {
		t.Reset()
	}
	for nSrc < len(src) {
		b := src[nSrc]

		if b == 0x1B {
			consumed, ok := t.designate(src[nSrc:], atEOF)
			if !ok {
				if atEOF {
					// Dangling escape at end of input: drop it.
					nSrc = len(src)
					break
				}
				return nDst, nSrc, transform.ErrShortSrc
			}
			nSrc += consumed
			continue
		}

		var emit []rune
		flushPending := false
		switch {
		case b < 0x20:
			// Terminators and other controls pass through untouched.
			emit = []rune{rune(b)}
		case b < 0x80:
			if t.g0 == setASCII {
				emit = append(emit, rune(b))
				emit = append(emit, t.pending...)
				flushPending = true
			} else {
				emit = []rune{utf8.RuneError}
			}
		case b < 0xA0:
			emit = []rune{utf8.RuneError}
		default:
			if t.g1 != setAnsel {
				emit = []rune{utf8.RuneError}
				break
			}
			if mark, ok := anselCombining[b]; ok {
				t.pending = append(t.pending, mark)
			} else if r, ok := anselSpacing[b]; ok {
				emit = append(emit, r)
				emit = append(emit, t.pending...)
				flushPending = true
			} else {
				emit = []rune{utf8.RuneError}
			}
		}

		need := 0
		for _, r := range emit {
			need += utf8.RuneLen(r)
		}
		if nDst+need > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		for _, r := range emit {
			nDst += utf8.EncodeRune(dst[nDst:], r)
		}
		if flushPending {
			t.pending = t.pending[:0]
		}
		nSrc++
	}

	if atEOF && len(t.pending) > 0 {
		// Diacritics with no following base character: emit them bare.
		need := 0
		for _, r := range t.pending {
			need += utf8.RuneLen(r)
		}
		if nDst+need > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		for _, r := range t.pending {
			nDst += utf8.EncodeRune(dst[nDst:], r)
		}
		t.pending = t.pending[:0]
	}
	return nDst, nSrc, nil
}

// designate consumes an escape sequence starting at src[0] and switches
// the working sets. It reports the bytes consumed and whether the
// sequence was complete.
func (t *anselTransformer) designate(src []byte, atEOF bool) (int, bool) {
	if len(src) < 2 {
		return 0, false
	}
	switch src[1] {
	case 's':
		t.g0 = setASCII
		return 2, true
	case 'g', 'b', 'p':
		// Greek symbols, subscripts, superscripts.
		t.g0 = setOther
		return 2, true
	case '(', ',':
		if len(src) < 3 {
			return 0, false
		}
		t.g0 = graphicSet(src[2])
		return 3, true
	case ')', '-':
		if len(src) < 3 {
			return 0, false
		}
		t.g1 = graphicSet(src[2])
		return 3, true
	case '$':
		// Multi-byte set designation (EACC); an optional intermediate
		// precedes the final byte.
		i := 2
		if i < len(src) && (src[i] == ',' || src[i] == '(' || src[i] == ')' || src[i] == '-') {
			i++
		}
		if i >= len(src) {
			return 0, false
		}
		if i > 2 && (src[2] == ')' || src[2] == '-') {
			t.g1 = setOther
		} else {
			t.g0 = setOther
		}
		return i + 1, true
	default:
		// Not a designation we understand; swallow the escape byte.
		return 1, true
	}
}

func graphicSet(final byte) int {
	switch final {
	case 'B':
		return setASCII
	case 'E':
		return setAnsel
	default:
		return setOther
	}
}

// anselSpacing maps ANSEL spacing graphic characters to Unicode.
var anselSpacing = map[byte]rune{
	0xA1: 'Ł',
	0xA2: 'Ø',
	0xA3: 'Đ',
	0xA4: 'Þ',
	0xA5: 'Æ',
	0xA6: 'Œ',
	0xA7: 'ʹ', // modifier prime
	0xA8: '·', // middle dot
	0xA9: '♭', // music flat
	0xAA: '®',
	0xAB: '±',
	0xAC: 'Ơ',
	0xAD: 'Ư',
	0xAE: 'ʼ', // modifier apostrophe
	0xB0: 'ʻ', // modifier turned comma
	0xB1: 'ł',
	0xB2: 'ø',
	0xB3: 'đ',
	0xB4: 'þ',
	0xB5: 'æ',
	0xB6: 'œ',
	0xB7: 'ʺ', // modifier double prime
	0xB8: 'ı', // dotless i
	0xB9: '£',
	0xBA: 'ð',
	0xBC: 'ơ',
	0xBD: 'ư',
	0xC0: '°',
	0xC1: 'ℓ', // script small l
	0xC2: '℗', // sound recording copyright
	0xC3: '©',
	0xC4: '♯', // music sharp
	0xC5: '¿',
	0xC6: '¡',
	0xC7: 'ß',
	0xC8: '€', // euro sign
}

// anselCombining maps ANSEL combining diacritics to Unicode combining
// marks. In MARC-8 they precede the base character; in Unicode they
// follow it.
var anselCombining = map[byte]rune{
	0xE0: '̉', // hook above
	0xE1: '̀', // grave
	0xE2: '́', // acute
	0xE3: '̂', // circumflex
	0xE4: '̃', // tilde
	0xE5: '̄', // macron
	0xE6: '̆', // breve
	0xE7: '̇', // dot above
	0xE8: '̈', // diaeresis
	0xE9: '̌', // caron
	0xEA: '̊', // ring above
	0xEB: '︠', // ligature, left half
	0xEC: '︡', // ligature, right half
	0xED: '̕', // comma above right
	0xEE: '̋', // double acute
	0xEF: '̐', // candrabindu
	0xF0: '̧', // cedilla
	0xF1: '̨', // right hook (ogonek)
	0xF2: '̣', // dot below
	0xF3: '̤', // double dot below
	0xF4: '̥', // ring below
	0xF5: '̳', // double underscore
	0xF6: '̲', // underscore
	0xF7: '̦', // comma below
	0xF8: '̜', // left half ring below
	0xF9: '̮', // breve below
	0xFA: '︢', // double tilde, left half
	0xFB: '︣', // double tilde, right half
	0xFE: '̓', // high comma centered
}
