// Package extract compiles Traject-style field patterns and runs them
// against MARC-21 records.
//
// A query is one or more patterns separated by ':'. Control-field
// patterns select the whole field data or a character slice, for
// example "005" or "008[7-10]". Data-field patterns select subfields,
// optionally gated on indicators: "245a", "270|1*|b", "100abcd". A
// repeated code ("270aa") joins every occurrence of that subfield into
// one space-separated value per field; no codes at all selects every
// subfield.
//
// Extractors are immutable after compilation and safe to share across
// goroutines; the records they run against need not be.
package extract

import (
	"strings"

	"github.com/ssargent/marcstream/pkg/marc"
)

// punctuationCutset is what TrimPunctuation removes from both ends of a
// value: ASCII whitespace plus the terminal punctuation conventional in
// MARC cataloging.
const punctuationCutset = " \t\n\r\v\f.,;:/\\=+"

// Extractor is a compiled query plan.
type Extractor struct {
	patterns []pattern
	options  Options
}

// New compiles a query into an extractor. Empty patterns between colons
// are dropped. Compilation failures wrap ErrInvalidPattern and name the
// offending pattern.
func New(query string, options Options) (*Extractor, error) {
	e := &Extractor{options: options}
	for _, raw := range strings.Split(query, ":") {
		if raw == "" {
			continue
		}
		compiled, err := compilePattern(raw)
		if err != nil {
			return nil, err
		}
		e.patterns = append(e.patterns, compiled)
	}
	return e, nil
}

// Extract runs the compiled plan against a record and returns the
// extracted values. Extraction is total: any record yields a (possibly
// empty) result.
func (e *Extractor) Extract(record *marc.Record) []string {
	var results []string
	for _, p := range e.patterns {
		var values []string
		if p.control {
			values = e.extractControl(p, record)
		} else {
			values = e.extractData(p, record)
		}
		results = append(results, values...)
		if e.options.First && len(results) > 0 {
			results = results[:1]
			break
		}
	}
	if len(results) == 0 && e.options.Default != "" {
		return []string{e.options.Default}
	}
	if !e.options.AllowDuplicates {
		results = distinct(results)
	}
	return results
}

// extractControl selects the data, or the requested character slice, of
// every control field bearing the pattern's tag.
func (e *Extractor) extractControl(p pattern, record *marc.Record) []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range record.GetFields(p.tag) {
		field, ok := f.(*marc.ControlField)
		if !ok {
			continue
		}
		value := field.Data
		if p.hasRange {
			value = sliceRunes(value, p.start, p.end)
			if value == "" {
				continue
			}
		}
		if !e.options.AllowDuplicates {
			if seen[value] {
				continue
			}
			seen[value] = true
		}
		if e.options.TrimPunctuation {
			value = strings.Trim(value, punctuationCutset)
		}
		out = append(out, value)
	}
	return out
}

// extractData visits the pattern's fields (and/or their linked 880
// renderings) and collects subfield values per the compiled code list.
func (e *Extractor) extractData(p pattern, record *marc.Record) []string {
	var out []string
	for _, field := range e.visitFields(p.tag, record) {
		if p.hasIndicators && !matchIndicators(p, field) {
			continue
		}

		var fieldValues []string
		seen := make(map[string]bool)
		if p.wildcard {
			fieldValues = e.collect(field, '*', false, seen)
		} else {
			for _, spec := range p.codes {
				fieldValues = append(fieldValues, e.collect(field, spec.code, spec.joinAll, seen)...)
			}
		}
		if e.options.Separator != "" && len(fieldValues) > 0 {
			fieldValues = []string{strings.Join(fieldValues, e.options.Separator)}
		}
		out = append(out, fieldValues...)
	}
	return out
}

// collect gathers the values of one subfield code within a field. When
// joinAll is set, every occurrence collapses to a single space-joined
// value.
func (e *Extractor) collect(field *marc.DataField, code byte, joinAll bool, seen map[string]bool) []string {
	var values []string
	for _, sf := range field.Subfields(code) {
		value := sf.Data
		if !e.options.AllowDuplicates {
			if seen[value] {
				continue
			}
			seen[value] = true
		}
		if e.options.TrimPunctuation {
			value = strings.Trim(value, punctuationCutset)
		}
		values = append(values, value)
	}
	if joinAll {
		if len(values) == 0 {
			return nil
		}
		return []string{strings.Join(values, " ")}
	}
	return values
}

// visitFields resolves which data fields a pattern visits, honoring the
// alternate-script option.
func (e *Extractor) visitFields(tag string, record *marc.Record) []*marc.DataField {
	var fields []*marc.DataField
	if e.options.Alternate != Only {
		fields = append(fields, dataFields(record.GetFields(tag))...)
	}
	if e.options.Alternate != DontInclude {
		for _, field := range dataFields(record.GetFields("880")) {
			if sf, ok := field.First('6'); ok && strings.HasPrefix(sf.Data, tag) {
				fields = append(fields, field)
			}
		}
	}
	return fields
}

func dataFields(fields []marc.Field) []*marc.DataField {
	var out []*marc.DataField
	for _, f := range fields {
		if df, ok := f.(*marc.DataField); ok {
			out = append(out, df)
		}
	}
	return out
}

func matchIndicators(p pattern, field *marc.DataField) bool {
	return matchIndicator(p.ind1, field.Indicator1) && matchIndicator(p.ind2, field.Indicator2)
}

func matchIndicator(want, got byte) bool {
	if want == '*' {
		return true
	}
	if got == 0 {
		got = ' '
	}
	return want == got
}

// sliceRunes selects the inclusive character range [start, end],
// clamped to the available data. A start beyond the data selects
// nothing.
func sliceRunes(s string, start, end int) string {
	runes := []rune(s)
	if start >= len(runes) || start > end {
		return ""
	}
	if end >= len(runes) {
		end = len(runes) - 1
	}
	return string(runes[start : end+1])
}

// distinct removes repeated values, preserving first-seen order.
func distinct(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
