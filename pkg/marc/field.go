package marc

// Field is a variable field of a MARC-21 record. Exactly two
// implementations exist: *ControlField for tags 001-009 and *DataField
// for tags 010-999.
type Field interface {
	// Tag returns the three-digit field tag.
	Tag() string
	// Empty reports whether the field carries no payload: a control
	// field with empty data, or a data field with zero subfields.
	Empty() bool
}

// Subfield is a single coded unit within a data field.
type Subfield struct {
	Code byte
	Data string
}

// ControlField is a variable field with tag 001-009 carrying raw data.
type ControlField struct {
	tag  string
	Data string
}

// NewControlField creates a control field. The tag must be three ASCII
// digits with numeric value below 10.
func NewControlField(tag, data string) (*ControlField, error) {
	n, ok := validTag(tag)
	if !ok || n >= 10 {
		return nil, ErrInvalidTag
	}
	return &ControlField{tag: tag, Data: data}, nil
}

// Tag returns the field tag.
func (f *ControlField) Tag() string {
	return f.tag
}

// Empty reports whether the field data is empty.
func (f *ControlField) Empty() bool {
	return f.Data == ""
}

// DataField is a variable field with tag 010-999 carrying two indicator
// characters and an ordered sequence of subfields.
type DataField struct {
	tag        string
	Indicator1 byte
	Indicator2 byte
	subfields  []Subfield
}

// NewDataField creates a data field. The tag must be three ASCII digits
// with numeric value 10 or above.
func NewDataField(tag string, ind1, ind2 byte, subfields ...Subfield) (*DataField, error) {
	n, ok := validTag(tag)
	if !ok || n < 10 {
		return nil, ErrInvalidTag
	}
	f := &DataField{tag: tag, Indicator1: ind1, Indicator2: ind2}
	f.subfields = append(f.subfields, subfields...)
	return f, nil
}

// Tag returns the field tag.
func (f *DataField) Tag() string {
	return f.tag
}

// Empty reports whether the field has zero subfields.
func (f *DataField) Empty() bool {
	return len(f.subfields) == 0
}

// Len returns the number of subfields.
func (f *DataField) Len() int {
	return len(f.subfields)
}

// AddSubfield appends a subfield.
func (f *DataField) AddSubfield(code byte, data string) {
	f.subfields = append(f.subfields, Subfield{Code: code, Data: data})
}

// Subfields returns the subfields matching code in source order. The
// wildcard code '*' selects every subfield.
func (f *DataField) Subfields(code byte) []Subfield {
	if code == '*' {
		out := make([]Subfield, len(f.subfields))
		copy(out, f.subfields)
		return out
	}
	var out []Subfield
	for _, sf := range f.subfields {
		if sf.Code == code {
			out = append(out, sf)
		}
	}
	return out
}

// First returns the first subfield with the given code.
func (f *DataField) First(code byte) (Subfield, bool) {
	for _, sf := range f.subfields {
		if sf.Code == code {
			return sf, true
		}
	}
	return Subfield{}, false
}

// SubfieldAt returns the i-th subfield in source order. The index must
// satisfy 0 <= i < Len().
func (f *DataField) SubfieldAt(i int) (Subfield, error) {
	if i < 0 || i >= len(f.subfields) {
		return Subfield{}, ErrOutOfRange
	}
	return f.subfields[i], nil
}
