package persistence

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TenantModel represents a tenant (the "users" table).
type TenantModel struct {
	ID        string    `gorm:"column:id_user;type:varchar(36);primaryKey"`
	Email     string    `gorm:"column:email;type:varchar(255);index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (TenantModel) TableName() string { return "users" }

// ProjectModel represents a project owned by a tenant.
type ProjectModel struct {
	ID       string `gorm:"column:id_project;type:varchar(36);primaryKey"`
	Name     string `gorm:"column:name;type:varchar(255)"`
	TenantID string `gorm:"column:id_user;type:varchar(36);index;not null"`
}

// TableName returns the table name.
func (ProjectModel) TableName() string { return "projects" }

// LinkedAccountModel represents an end customer inside a project.
type LinkedAccountModel struct {
	ID        string `gorm:"column:id_linked_user;type:varchar(36);primaryKey"`
	OriginID  string `gorm:"column:origin_id;type:varchar(255)"`
	Alias     string `gorm:"column:alias;type:varchar(255)"`
	ProjectID string `gorm:"column:id_project;type:varchar(36);index;not null"`
}

// TableName returns the table name.
func (LinkedAccountModel) TableName() string { return "linked_users" }

// ConnectionModel represents an authorized link between a linked account
// and a provider.
type ConnectionModel struct {
	ID              string    `gorm:"column:id_connection;type:varchar(36);primaryKey"`
	Provider        string    `gorm:"column:provider_slug;type:varchar(64);index:idx_connection_lookup;not null"`
	Vertical        string    `gorm:"column:vertical;type:varchar(32);index:idx_connection_lookup;not null"`
	Status          string    `gorm:"column:status;type:varchar(32)"`
	LinkedAccountID string    `gorm:"column:id_linked_user;type:varchar(36);index:idx_connection_lookup;not null"`
	ProjectID       string    `gorm:"column:id_project;type:varchar(36);index"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (ConnectionModel) TableName() string { return "connections" }

// AttributeModel is one EAV schema row. Rows with a RemoteID are field
// mappings.
type AttributeModel struct {
	ID         string    `gorm:"column:id_attribute;type:varchar(36);primaryKey"`
	Slug       string    `gorm:"column:slug;type:varchar(255);index:idx_attribute_owner;not null"`
	Source     string    `gorm:"column:source;type:varchar(64);index:idx_attribute_owner"`
	ConsumerID string    `gorm:"column:id_consumer;type:varchar(36);index:idx_attribute_owner"`
	OwnerType  string    `gorm:"column:ressource_owner_type;type:varchar(64);index"`
	RemoteID   string    `gorm:"column:remote_id;type:varchar(255)"`
	DataType   string    `gorm:"column:data_type;type:varchar(32)"`
	Status     string    `gorm:"column:status;type:varchar(32)"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name.
func (AttributeModel) TableName() string { return "attribute" }

// EntityModel groups the values written for one canonical record in one
// persist call.
type EntityModel struct {
	ID        string    `gorm:"column:id_entity;type:varchar(36);primaryKey"`
	OwnerID   string    `gorm:"column:ressource_owner_id;type:varchar(36);index;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (EntityModel) TableName() string { return "entity" }

// ValueModel is one custom field value.
type ValueModel struct {
	ID          string    `gorm:"column:id_value;type:varchar(36);primaryKey"`
	Data        string    `gorm:"column:data;type:text"`
	EntityID    string    `gorm:"column:id_entity;type:varchar(36);index;not null"`
	AttributeID string    `gorm:"column:id_attribute;type:varchar(36);index;not null"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (ValueModel) TableName() string { return "value" }

// RemoteDataModel caches the latest raw provider payload of a record.
type RemoteDataModel struct {
	ID        string    `gorm:"column:id_remote_data;type:varchar(36);primaryKey"`
	OwnerID   string    `gorm:"column:ressource_owner_id;type:varchar(36);uniqueIndex;not null"`
	Format    string    `gorm:"column:format;type:varchar(16)"`
	Data      string    `gorm:"column:data;type:text"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (RemoteDataModel) TableName() string { return "remote_data" }

// EventModel is one audit row.
type EventModel struct {
	ID              string    `gorm:"column:id_event;type:varchar(36);primaryKey"`
	Status          string    `gorm:"column:status;type:varchar(16);index"`
	Type            string    `gorm:"column:type;type:varchar(64);index"`
	Method          string    `gorm:"column:method;type:varchar(16)"`
	URL             string    `gorm:"column:url;type:varchar(255)"`
	Provider        string    `gorm:"column:provider;type:varchar(64)"`
	Direction       string    `gorm:"column:direction;type:varchar(4)"`
	Timestamp       time.Time `gorm:"column:timestamp;index"`
	LinkedAccountID string    `gorm:"column:id_linked_user;type:varchar(36);index"`
}

// TableName returns the table name.
func (EventModel) TableName() string { return "events" }

// TaskModel represents a queued task in the database.
type TaskModel struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string          `gorm:"column:dedup_key;type:varchar(512);uniqueIndex;not null"`
	Type      string          `gorm:"column:type;type:varchar(255);index;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:text"`
	Priority  int             `gorm:"column:priority;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (TaskModel) TableName() string { return "tasks" }

func newKey(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// Prepare assigns a key to a new tenant.
func (m *TenantModel) Prepare() { m.ID = newKey(m.ID) }

// Prepare assigns a key to a new project.
func (m *ProjectModel) Prepare() { m.ID = newKey(m.ID) }

// Prepare assigns a key to a new linked account.
func (m *LinkedAccountModel) Prepare() { m.ID = newKey(m.ID) }

// Prepare assigns a key to a new connection.
func (m *ConnectionModel) Prepare() { m.ID = newKey(m.ID) }

// Prepare assigns a key to a new event.
func (m *EventModel) Prepare() { m.ID = newKey(m.ID) }

// Prepare assigns a key and creation time to a new attribute.
func (m *AttributeModel) Prepare() {
	m.ID = newKey(m.ID)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
}
