package extract

import "strings"

// pattern is one compiled query pattern. A query compiles to an ordered
// list of these.
type pattern struct {
	tag     string
	control bool

	// Control-field patterns: optional character range, inclusive.
	hasRange   bool
	start, end int

	// Data-field patterns: optional indicator match ('*' = any) and an
	// ordered list of subfield codes. An empty code list selects every
	// subfield via the wildcard.
	hasIndicators bool
	ind1, ind2    byte
	codes         []codeSpec
	wildcard      bool
}

// codeSpec is a subfield code selection. A code repeated in the pattern
// joins all of its occurrences into a single value per field.
type codeSpec struct {
	code    byte
	joinAll bool
}

// compilePattern compiles a single pattern of a query.
func compilePattern(p string) (pattern, error) {
	if len(p) < 3 {
		return pattern{}, &PatternError{p, "pattern is shorter than a field tag"}
	}
	tag := p[:3]
	tagValue := 0
	for i := 0; i < 3; i++ {
		c := tag[i]
		if c < '0' || c > '9' {
			return pattern{}, &PatternError{p, "tag is not numeric"}
		}
		tagValue = tagValue*10 + int(c-'0')
	}

	rest := p[3:]
	if tagValue < 10 {
		return compileControl(p, tag, rest)
	}
	return compileData(p, tag, rest)
}

// compileControl parses the optional [index] or [start-end] range of a
// control-field pattern.
func compileControl(p, tag, rest string) (pattern, error) {
	compiled := pattern{tag: tag, control: true}
	if rest == "" {
		return compiled, nil
	}
	if rest[0] != '[' {
		return pattern{}, &PatternError{p, "indicators and subfield codes require a data field tag"}
	}
	if !strings.HasSuffix(rest, "]") {
		return pattern{}, &PatternError{p, "unmatched range bracket"}
	}
	interior := rest[1 : len(rest)-1]
	lo, hi, ok := parseRange(interior)
	if !ok {
		return pattern{}, &PatternError{p, "range is not numeric"}
	}
	compiled.hasRange = true
	compiled.start = lo
	compiled.end = hi
	return compiled, nil
}

// parseRange parses "index" or "start-end" as non-negative decimals.
func parseRange(s string) (int, int, bool) {
	if lo, hi, found := strings.Cut(s, "-"); found {
		start, ok := parseIndex(lo)
		if !ok {
			return 0, 0, false
		}
		end, ok := parseIndex(hi)
		if !ok {
			return 0, 0, false
		}
		return start, end, true
	}
	index, ok := parseIndex(s)
	if !ok {
		return 0, 0, false
	}
	return index, index, true
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// compileData parses the optional |xy| indicator match and the subfield
// code list of a data-field pattern.
func compileData(p, tag, rest string) (pattern, error) {
	compiled := pattern{tag: tag}

	if strings.ContainsRune(rest, '[') {
		return pattern{}, &PatternError{p, "character ranges require a control field tag"}
	}

	if len(rest) > 0 && rest[0] == '|' {
		if len(rest) < 4 || rest[3] != '|' {
			return pattern{}, &PatternError{p, "indicators must be exactly two characters wrapped in |..|"}
		}
		ind1, ok := indicatorSpec(rest[1])
		if !ok {
			return pattern{}, &PatternError{p, "indicator must be a lower-case alphanumeric, blank, or *"}
		}
		ind2, ok := indicatorSpec(rest[2])
		if !ok {
			return pattern{}, &PatternError{p, "indicator must be a lower-case alphanumeric, blank, or *"}
		}
		compiled.hasIndicators = true
		compiled.ind1 = ind1
		compiled.ind2 = ind2
		rest = rest[4:]
	}

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		if !isSubfieldCode(c) {
			return pattern{}, &PatternError{p, "unrecognized subfield code character"}
		}
		if j := codeIndex(compiled.codes, c); j >= 0 {
			compiled.codes[j].joinAll = true
			continue
		}
		compiled.codes = append(compiled.codes, codeSpec{code: c})
	}
	if len(compiled.codes) == 0 {
		compiled.wildcard = true
	}
	return compiled, nil
}

func indicatorSpec(c byte) (byte, bool) {
	if c == '*' || c == ' ' || isSubfieldCode(c) {
		return c, true
	}
	return 0, false
}

func isSubfieldCode(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z')
}

func codeIndex(codes []codeSpec, c byte) int {
	for i, spec := range codes {
		if spec.code == c {
			return i
		}
	}
	return -1
}
