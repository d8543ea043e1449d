package resolve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

func TestCheckAndApply_EmptyValueIsNoop(t *testing.T) {
	store := newFakeAttributeStore()
	ref := &model.VesselRef{VesselID: "v1"}
	rec := &model.CanonicalRecord{SourceName: "eu_fleet"}

	outcome, err := NewConflicts(store).CheckAndApply(context.Background(), ref, rec, "port", "")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)
	assert.Empty(t, store.inserted)
	assert.Empty(t, store.history)
}

func TestCheckAndApply_FirstValueInserted(t *testing.T) {
	store := newFakeAttributeStore()
	ref := &model.VesselRef{VesselID: "v1"}
	rec := &model.CanonicalRecord{SourceName: "eu_fleet"}

	outcome, err := NewConflicts(store).CheckAndApply(context.Background(), ref, rec, "port", "Vigo")
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)

	v, ok, _ := store.ActiveAttribute(context.Background(), "v1", "eu_fleet", "port")
	assert.True(t, ok)
	assert.Equal(t, "Vigo", v)
	require.Len(t, store.history, 1)
	assert.Equal(t, "port", store.history[0].Field)
	assert.Empty(t, store.conflicts)
}

func TestCheckAndApply_EqualValueUnchanged(t *testing.T) {
	store := newFakeAttributeStore()
	store.active[attrKey("v1", "eu_fleet", "port")] = "Vigo"
	ref := &model.VesselRef{VesselID: "v1"}
	rec := &model.CanonicalRecord{SourceName: "eu_fleet"}

	outcome, err := NewConflicts(store).CheckAndApply(context.Background(), ref, rec, "port", "Vigo")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, outcome)
	assert.Empty(t, store.history)
	assert.Empty(t, store.conflicts)
}

func TestCheckAndApply_DifferingValueLogsConflict(t *testing.T) {
	store := newFakeAttributeStore()
	store.active[attrKey("v1", "eu_fleet", "port")] = "Vigo"
	ref := &model.VesselRef{VesselID: "v1"}
	rec := &model.CanonicalRecord{SourceName: "eu_fleet"}

	outcome, err := NewConflicts(store).CheckAndApply(context.Background(), ref, rec, "port", "Bilbao")
	require.NoError(t, err)
	assert.Equal(t, ConflictLogged, outcome)

	// New value is active, old value audited.
	v, ok, _ := store.ActiveAttribute(context.Background(), "v1", "eu_fleet", "port")
	assert.True(t, ok)
	assert.Equal(t, "Bilbao", v)
	require.Len(t, store.conflicts, 1)
	assert.Equal(t, "Vigo", store.conflicts[0].OldValue)
	assert.Equal(t, "Bilbao", store.conflicts[0].NewValue)
	require.Len(t, store.history, 1)
}

func TestCheckAndApply_PerSourceIsolation(t *testing.T) {
	store := newFakeAttributeStore()
	store.active[attrKey("v1", "eu_fleet", "port")] = "Vigo"
	ref := &model.VesselRef{VesselID: "v1"}
	rec := &model.CanonicalRecord{SourceName: "ccamlr"}

	// A different source reporting a different value is a first write for
	// that source, not a conflict with eu_fleet.
	outcome, err := NewConflicts(store).CheckAndApply(context.Background(), ref, rec, "port", "Montevideo")
	require.NoError(t, err)
	assert.Equal(t, Updated, outcome)
	assert.Empty(t, store.conflicts)
}
