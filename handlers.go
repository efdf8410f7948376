package syncd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/unifiedsync/syncd/application/handler/ingest"
	"github.com/unifiedsync/syncd/domain/task"
)

// registerHandlers registers all task handlers with the worker registry.
func (c *Client) registerHandlers() {
	c.registry.Register(task.OperationSyncEntity, ingest.NewSyncEntity(c.Syncs, c.logger))
	c.registry.Register(task.OperationSyncConnection, ingest.NewSyncConnection(c.Syncs, c.logger))

	c.logger.Debug("registered task handlers", slog.Int("count", len(c.registry.Operations())))
}

// validateHandlers checks that every known operation has a registered handler.
func (c *Client) validateHandlers() error {
	var missing []string
	for _, op := range task.All() {
		if !c.registry.HasHandler(op) {
			missing = append(missing, op.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing handlers for operations: [%s]", strings.Join(missing, ", "))
}
