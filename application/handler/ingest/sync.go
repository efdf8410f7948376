// Package ingest handles queued sync operations.
package ingest

import (
	"context"
	"log/slog"

	"github.com/unifiedsync/syncd/application/handler"
	"github.com/unifiedsync/syncd/application/service"
	"github.com/unifiedsync/syncd/domain/entity"
)

// Syncer runs pipelines.
type Syncer interface {
	SyncAll(ctx context.Context, t entity.Type, filter service.TenantFilter) (service.Report, error)
	SyncConnection(ctx context.Context, t entity.Type, linkedAccountID, provider, scopeID string) error
}

// SyncEntity handles the sync.entity task operation.
// It syncs one entity type for every tenant matching the payload filters.
type SyncEntity struct {
	syncer Syncer
	logger *slog.Logger
}

// NewSyncEntity creates a new SyncEntity handler.
func NewSyncEntity(syncer Syncer, logger *slog.Logger) *SyncEntity {
	return &SyncEntity{syncer: syncer, logger: logger}
}

// Execute processes the sync.entity task.
func (h *SyncEntity) Execute(ctx context.Context, payload map[string]any) error {
	t, err := handler.ExtractEntityType(payload, service.PayloadEntityType)
	if err != nil {
		return err
	}

	var filter service.TenantFilter
	for key, dst := range map[string]*string{
		service.PayloadTenantID:        &filter.TenantID,
		service.PayloadProjectID:       &filter.ProjectID,
		service.PayloadLinkedAccountID: &filter.LinkedAccountID,
		service.PayloadProvider:        &filter.Provider,
	} {
		if *dst, err = handler.OptionalString(payload, key); err != nil {
			return err
		}
	}

	report, err := h.syncer.SyncAll(ctx, t, filter)
	h.logger.DebugContext(ctx, "entity sync handled",
		slog.String("entity_type", t.String()),
		slog.Int("failed", report.Failed),
	)
	return err
}

// SyncConnection handles the sync.connection task operation.
type SyncConnection struct {
	syncer Syncer
	logger *slog.Logger
}

// NewSyncConnection creates a new SyncConnection handler.
func NewSyncConnection(syncer Syncer, logger *slog.Logger) *SyncConnection {
	return &SyncConnection{syncer: syncer, logger: logger}
}

// Execute processes the sync.connection task.
func (h *SyncConnection) Execute(ctx context.Context, payload map[string]any) error {
	t, err := handler.ExtractEntityType(payload, service.PayloadEntityType)
	if err != nil {
		return err
	}
	linkedAccountID, err := handler.ExtractString(payload, service.PayloadLinkedAccountID)
	if err != nil {
		return err
	}
	provider, err := handler.ExtractString(payload, service.PayloadProvider)
	if err != nil {
		return err
	}
	scopeID, err := handler.OptionalString(payload, service.PayloadScopeID)
	if err != nil {
		return err
	}

	return h.syncer.SyncConnection(ctx, t, linkedAccountID, provider, scopeID)
}
