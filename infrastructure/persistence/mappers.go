package persistence

import (
	"encoding/json"

	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/event"
	"github.com/unifiedsync/syncd/domain/mapping"
	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/domain/tenant"
)

// TenantMapper maps between tenant.Tenant and TenantModel.
type TenantMapper struct{}

// ToDomain converts a TenantModel to a domain Tenant.
func (TenantMapper) ToDomain(e TenantModel) tenant.Tenant {
	return tenant.NewTenant(e.ID, e.Email, e.CreatedAt)
}

// ToModel converts a domain Tenant to a TenantModel.
func (TenantMapper) ToModel(t tenant.Tenant) TenantModel {
	return TenantModel{ID: t.ID(), Email: t.Email(), CreatedAt: t.CreatedAt()}
}

// ProjectMapper maps between tenant.Project and ProjectModel.
type ProjectMapper struct{}

// ToDomain converts a ProjectModel to a domain Project.
func (ProjectMapper) ToDomain(e ProjectModel) tenant.Project {
	return tenant.NewProject(e.ID, e.Name, e.TenantID)
}

// ToModel converts a domain Project to a ProjectModel.
func (ProjectMapper) ToModel(p tenant.Project) ProjectModel {
	return ProjectModel{ID: p.ID(), Name: p.Name(), TenantID: p.TenantID()}
}

// LinkedAccountMapper maps between tenant.LinkedAccount and LinkedAccountModel.
type LinkedAccountMapper struct{}

// ToDomain converts a LinkedAccountModel to a domain LinkedAccount.
func (LinkedAccountMapper) ToDomain(e LinkedAccountModel) tenant.LinkedAccount {
	return tenant.NewLinkedAccount(e.ID, e.OriginID, e.Alias, e.ProjectID)
}

// ToModel converts a domain LinkedAccount to a LinkedAccountModel.
func (LinkedAccountMapper) ToModel(l tenant.LinkedAccount) LinkedAccountModel {
	return LinkedAccountModel{ID: l.ID(), OriginID: l.OriginID(), Alias: l.Alias(), ProjectID: l.ProjectID()}
}

// ConnectionMapper maps between tenant.Connection and ConnectionModel.
type ConnectionMapper struct{}

// ToDomain converts a ConnectionModel to a domain Connection.
func (ConnectionMapper) ToDomain(e ConnectionModel) tenant.Connection {
	return tenant.NewConnection(
		e.ID, e.Provider, entity.Vertical(e.Vertical), e.Status,
		e.LinkedAccountID, e.ProjectID, e.CreatedAt,
	)
}

// ToModel converts a domain Connection to a ConnectionModel.
func (ConnectionMapper) ToModel(c tenant.Connection) ConnectionModel {
	return ConnectionModel{
		ID:              c.ID(),
		Provider:        c.Provider(),
		Vertical:        string(c.Vertical()),
		Status:          c.Status(),
		LinkedAccountID: c.LinkedAccountID(),
		ProjectID:       c.ProjectID(),
		CreatedAt:       c.CreatedAt(),
	}
}

// AttributeMapper maps between mapping.Attribute and AttributeModel.
type AttributeMapper struct{}

// ToDomain converts an AttributeModel to a domain Attribute.
func (AttributeMapper) ToDomain(e AttributeModel) mapping.Attribute {
	t, _ := entity.ParseType(e.OwnerType)
	return mapping.Attribute{
		ID:              e.ID,
		Slug:            e.Slug,
		Provider:        e.Source,
		LinkedAccountID: e.ConsumerID,
		EntityType:      t,
		RemoteProperty:  e.RemoteID,
		DataType:        e.DataType,
	}
}

// ToModel converts a domain Attribute to an AttributeModel.
func (AttributeMapper) ToModel(a mapping.Attribute) AttributeModel {
	return AttributeModel{
		ID:         a.ID,
		Slug:       a.Slug,
		Source:     a.Provider,
		ConsumerID: a.LinkedAccountID,
		OwnerType:  a.EntityType.String(),
		RemoteID:   a.RemoteProperty,
		DataType:   a.DataType,
		Status:     "defined",
	}
}

// EventMapper maps between event.Event and EventModel.
type EventMapper struct{}

// ToDomain converts an EventModel to a domain Event.
func (EventMapper) ToDomain(e EventModel) event.Event {
	return event.NewEvent(
		event.Status(e.Status), e.Type, e.Method, e.URL, e.Provider,
		event.Direction(e.Direction), e.LinkedAccountID, e.Timestamp,
	).WithID(e.ID)
}

// ToModel converts a domain Event to an EventModel.
func (EventMapper) ToModel(ev event.Event) EventModel {
	return EventModel{
		ID:              ev.ID(),
		Status:          string(ev.Status()),
		Type:            ev.Type(),
		Method:          ev.Method(),
		URL:             ev.URL(),
		Provider:        ev.Provider(),
		Direction:       string(ev.Direction()),
		Timestamp:       ev.Timestamp(),
		LinkedAccountID: ev.LinkedAccountID(),
	}
}

// TaskMapper maps between task.Task and TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (TaskMapper) ToDomain(e TaskModel) task.Task {
	var payload map[string]any
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}
	return task.NewTaskWithID(
		e.ID, e.DedupKey, task.Operation(e.Type), e.Priority,
		payload, e.CreatedAt, e.UpdatedAt,
	)
}

// ToModel converts a domain Task to a TaskModel.
func (TaskMapper) ToModel(t task.Task) TaskModel {
	payload, _ := t.PayloadJSON()
	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Type:      t.Operation().String(),
		Payload:   payload,
		Priority:  t.Priority(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}
