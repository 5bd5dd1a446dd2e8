package api

import (
	"github.com/segmentio/ksuid"

	"github.com/ssargent/marcstream/pkg/marc"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SubfieldView is the JSON rendering of a subfield
type SubfieldView struct {
	Code string `json:"code"`
	Data string `json:"data"`
}

// FieldView is the JSON rendering of a variable field
type FieldView struct {
	Tag        string         `json:"tag"`
	Data       string         `json:"data,omitempty"`
	Indicator1 string         `json:"ind1,omitempty"`
	Indicator2 string         `json:"ind2,omitempty"`
	Subfields  []SubfieldView `json:"subfields,omitempty"`
}

// RecordView is the JSON rendering of a stored record
type RecordView struct {
	ID       string      `json:"id,omitempty"`
	Leader   string      `json:"leader"`
	Fields   []FieldView `json:"fields"`
	Warnings []string    `json:"warnings,omitempty"`
}

// IngestResult reports the outcome of a batch ingest
type IngestResult struct {
	IDs      []string            `json:"ids"`
	Warnings map[string][]string `json:"warnings,omitempty"`
	Skipped  []string            `json:"skipped,omitempty"`
}

// StatsResult reports store and index statistics
type StatsResult struct {
	Records   int      `json:"records"`
	SizeBytes int64    `json:"size_bytes"`
	Fields    []string `json:"fields"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind        string
	Port        int
	APIKey      string
	DataDir     string
	ForceUTF8   bool
	SkipOnError bool
}

// IRecordStore defines the interface for record persistence
type IRecordStore interface {
	Create(record *marc.Record) (*ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*marc.Record, error)
	ReadRaw(id ksuid.KSUID) ([]byte, error)
	Delete(id ksuid.KSUID) error
	List() ([]ksuid.KSUID, error)
	Stats() (count int, size int64, err error)
}

// IIndex defines the interface for the extraction index
type IIndex interface {
	IndexRecord(id ksuid.KSUID, record *marc.Record) error
	DeleteRecord(id ksuid.KSUID, record *marc.Record) error
	Search(field, value string) ([]ksuid.KSUID, error)
	SearchRange(field, lo, hi string) ([]ksuid.KSUID, error)
	Fields() []string
}

// recordView renders a record for JSON responses.
func recordView(id string, record *marc.Record) RecordView {
	view := RecordView{
		ID:       id,
		Leader:   record.Leader(),
		Warnings: record.Warnings(),
	}
	for _, f := range record.GetFields("") {
		switch field := f.(type) {
		case *marc.ControlField:
			view.Fields = append(view.Fields, FieldView{
				Tag:  field.Tag(),
				Data: field.Data,
			})
		case *marc.DataField:
			fv := FieldView{
				Tag:        field.Tag(),
				Indicator1: string(field.Indicator1),
				Indicator2: string(field.Indicator2),
			}
			for _, sf := range field.Subfields('*') {
				fv.Subfields = append(fv.Subfields, SubfieldView{
					Code: string(sf.Code),
					Data: sf.Data,
				})
			}
			view.Fields = append(view.Fields, fv)
		}
	}
	return view
}
