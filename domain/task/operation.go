package task

import "strings"

// Operation represents the type of task operation.
type Operation string

// Operation values for the task queue system.
const (
	// OperationSyncEntity syncs one entity type across every tenant, or the
	// tenants named in the payload.
	OperationSyncEntity Operation = "syncd.sync.entity"
	// OperationSyncConnection syncs one entity type for a single linked
	// account and provider.
	OperationSyncConnection Operation = "syncd.sync.connection"
)

// String returns the string representation of the operation.
func (o Operation) String() string {
	return string(o)
}

// IsSyncOperation returns true if this is a sync operation.
func (o Operation) IsSyncOperation() bool {
	return strings.HasPrefix(string(o), "syncd.sync.")
}

// All returns every operation a worker must be able to handle.
func All() []Operation {
	return []Operation{OperationSyncEntity, OperationSyncConnection}
}
