package index

import (
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/marcstream/pkg/extract"
	"github.com/ssargent/marcstream/pkg/marc"
)

func newTestManager(t *testing.T, fields ...Field) *Manager {
	t.Helper()
	db, err := pebble.Open(t.TempDir(), &pebble.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewManager(db, fields)
}

func titleField(t *testing.T) Field {
	t.Helper()
	plan, err := extract.New("245a", extract.Options{TrimPunctuation: true})
	require.NoError(t, err)
	return Field{Name: "title", Plan: plan}
}

func titleRecord(t *testing.T, title string) *marc.Record {
	t.Helper()
	record := marc.NewRecord()
	field, err := marc.NewDataField("245", '1', '0', marc.Subfield{Code: 'a', Data: title})
	require.NoError(t, err)
	record.Add(field)
	return record
}

func TestManager_IndexAndSearch(t *testing.T) {
	manager := newTestManager(t, titleField(t))

	first := ksuid.New()
	second := ksuid.New()
	require.NoError(t, manager.IndexRecord(first, titleRecord(t, "Alpha")))
	require.NoError(t, manager.IndexRecord(second, titleRecord(t, "Beta")))

	t.Run("exact match", func(t *testing.T) {
		ids, err := manager.Search("title", "Alpha")
		require.NoError(t, err)
		assert.Equal(t, []ksuid.KSUID{first}, ids)
	})

	t.Run("no match", func(t *testing.T) {
		ids, err := manager.Search("title", "Gamma")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("unknown field", func(t *testing.T) {
		ids, err := manager.Search("publisher", "Alpha")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("values are post-processed before indexing", func(t *testing.T) {
		third := ksuid.New()
		require.NoError(t, manager.IndexRecord(third, titleRecord(t, "Gamma /")))

		ids, err := manager.Search("title", "Gamma")
		require.NoError(t, err)
		assert.Equal(t, []ksuid.KSUID{third}, ids)
	})
}

func TestManager_SearchRange(t *testing.T) {
	manager := newTestManager(t, titleField(t))

	ids := make(map[string]ksuid.KSUID)
	for _, title := range []string{"Alpha", "Beta", "Gamma"} {
		id := ksuid.New()
		ids[title] = id
		require.NoError(t, manager.IndexRecord(id, titleRecord(t, title)))
	}

	found, err := manager.SearchRange("title", "Alpha", "Beta")
	require.NoError(t, err)
	assert.ElementsMatch(t, []ksuid.KSUID{ids["Alpha"], ids["Beta"]}, found)
}

func TestManager_DeleteRecord(t *testing.T) {
	manager := newTestManager(t, titleField(t))

	id := ksuid.New()
	record := titleRecord(t, "Alpha")
	require.NoError(t, manager.IndexRecord(id, record))
	require.NoError(t, manager.DeleteRecord(id, record))

	found, err := manager.Search("title", "Alpha")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestManager_Fields(t *testing.T) {
	manager := newTestManager(t, titleField(t))
	assert.Equal(t, []string{"title"}, manager.Fields())
}

func TestManager_MultipleValuesPerRecord(t *testing.T) {
	plan, err := extract.New("650a", extract.Options{})
	require.NoError(t, err)
	manager := newTestManager(t, Field{Name: "subject", Plan: plan})

	record := marc.NewRecord()
	field, err := marc.NewDataField("650", ' ', '0',
		marc.Subfield{Code: 'a', Data: "Cats"},
		marc.Subfield{Code: 'a', Data: "Dogs"},
	)
	require.NoError(t, err)
	record.Add(field)

	id := ksuid.New()
	require.NoError(t, manager.IndexRecord(id, record))

	for _, subject := range []string{"Cats", "Dogs"} {
		ids, err := manager.Search("subject", subject)
		require.NoError(t, err)
		assert.Equal(t, []ksuid.KSUID{id}, ids, subject)
	}
}
