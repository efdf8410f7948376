package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	typ, err := ParseType(" CRM.Note ")
	require.NoError(t, err)
	assert.Equal(t, CRMNote, typ)
	assert.Equal(t, "crm.note", typ.String())
	assert.Equal(t, "crm.note.synced", typ.SyncedEvent())
	assert.Equal(t, "crm.note.pulled", typ.PulledWebhook())
	assert.Equal(t, "crm.note.push", typ.PushEvent())
	assert.Equal(t, "crm.note.created", typ.CreatedWebhook())

	for _, bad := range []string{"", "crm", ".note", "crm."} {
		_, err := ParseType(bad)
		assert.True(t, errors.Is(err, ErrUnknownType), bad)
	}
}

func TestRecord_CopiesAreIsolated(t *testing.T) {
	raw := Raw{"id": "1", "nested": map[string]any{"a": "b"}}
	fields := map[string]any{"name": "x"}
	rec := NewRecord("1", fields, map[string]any{"tag": "urgent"}, raw)

	fields["name"] = "mutated"
	raw["nested"].(map[string]any)["a"] = "mutated"

	v, ok := rec.Field("name")
	require.True(t, ok)
	assert.Equal(t, "x", v)
	assert.Equal(t, "b", rec.Raw()["nested"].(map[string]any)["a"])

	got := rec.FieldMappings()
	got["tag"] = "changed"
	assert.Equal(t, "urgent", rec.FieldMappings()["tag"])
}

func TestBuiltinCatalog(t *testing.T) {
	c := Builtin()

	d, err := c.Get(CRMStage)
	require.NoError(t, err)
	require.NotNil(t, d.Scope)
	assert.Equal(t, CRMDeal, d.Scope.Parent)
	assert.False(t, d.SupportsProvider("zoho"))
	assert.True(t, d.SupportsProvider("hubspot"))

	parent, ok := c.Lookup(d.Scope.Parent)
	require.True(t, ok)
	link, ok := parent.Field(d.Scope.LinkField)
	require.True(t, ok)
	assert.Equal(t, "id_crm_deals_stage", link.Column)

	_, err = c.Get(NewType("payroll", "nothing"))
	assert.ErrorIs(t, err, ErrUnknownType)

	for _, desc := range c.All() {
		assert.NotEmpty(t, desc.Table, desc.Type.String())
		assert.NotEmpty(t, desc.IDColumn, desc.Type.String())
		assert.NotEmpty(t, desc.JobName, desc.Type.String())
		assert.NotEmpty(t, desc.Providers, desc.Type.String())
	}
}
