package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unifiedsync/syncd/domain/store"
)

type widget struct {
	ID   string
	Name string
}

type widgetModel struct {
	ID   string `gorm:"primaryKey"`
	Name string
}

func (widgetModel) TableName() string { return "widgets" }

var widgetKeys int

func (m *widgetModel) Prepare() {
	if m.ID == "" {
		widgetKeys++
		m.ID = fmt.Sprintf("w-%d", widgetKeys)
	}
}

type widgetMapper struct{}

func (widgetMapper) ToDomain(m widgetModel) widget { return widget(m) }
func (widgetMapper) ToModel(w widget) widgetModel  { return widgetModel(w) }

func newWidgetRepository(t *testing.T) Repository[widget, widgetModel] {
	t.Helper()
	db := newTestDatabase(t)
	require.NoError(t, db.GORM().AutoMigrate(&widgetModel{}))
	return NewRepository[widget, widgetModel](db, widgetMapper{}, "widget")
}

func TestRepository_SaveAndCreate(t *testing.T) {
	ctx := context.Background()
	repo := newWidgetRepository(t)

	created, err := repo.Create(ctx, widget{Name: "gear"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID, "Prepare assigns the key")

	created.Name = "cog"
	saved, err := repo.Save(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, created.ID, saved.ID)

	_, err = repo.Create(ctx, created)
	assert.ErrorContains(t, err, "create widget")

	all, err := repo.Find(ctx)
	require.NoError(t, err)
	assert.Equal(t, []widget{{ID: created.ID, Name: "cog"}}, all)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRepository_FindOneAndExists(t *testing.T) {
	ctx := context.Background()
	repo := newWidgetRepository(t)

	_, err := repo.FindOne(ctx, store.WithCondition("name", "missing"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Create(ctx, widget{ID: "fixed", Name: "gear"})
	require.NoError(t, err)

	got, err := repo.FindOne(ctx, store.WithCondition("name", "gear"))
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.ID)

	ok, err := repo.Exists(ctx, store.WithCondition("id", "fixed"))
	require.NoError(t, err)
	assert.True(t, ok)
}
