// Package entity describes the canonical entity types syncd ingests and the
// records that flow through the pipeline.
package entity

import (
	"fmt"
	"strings"
)

// Vertical groups entity types by business domain.
type Vertical string

// Vertical values.
const (
	VerticalATS         Vertical = "ats"
	VerticalCRM         Vertical = "crm"
	VerticalFileStorage Vertical = "filestorage"
	VerticalHRIS        Vertical = "hris"
)

// Type identifies a canonical entity type, e.g. "crm.note".
type Type struct {
	vertical Vertical
	name     string
}

// NewType creates a Type.
func NewType(vertical Vertical, name string) Type {
	return Type{vertical: vertical, name: strings.ToLower(name)}
}

// ParseType parses "<vertical>.<name>".
func ParseType(s string) (Type, error) {
	vertical, name, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ".")
	if !ok || vertical == "" || name == "" {
		return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return NewType(Vertical(vertical), name), nil
}

// Vertical returns the vertical.
func (t Type) Vertical() Vertical { return t.vertical }

// Name returns the entity name within its vertical.
func (t Type) Name() string { return t.name }

// IsZero reports whether the type is unset.
func (t Type) IsZero() bool { return t.vertical == "" && t.name == "" }

// String returns "<vertical>.<name>".
func (t Type) String() string {
	return string(t.vertical) + "." + t.name
}

// SyncedEvent is the event type recorded after a pull.
func (t Type) SyncedEvent() string { return t.String() + ".synced" }

// PulledWebhook is the webhook tag dispatched after a pull.
func (t Type) PulledWebhook() string { return t.String() + ".pulled" }

// PushEvent is the event type recorded after a push to a provider.
func (t Type) PushEvent() string { return t.String() + ".push" }

// CreatedWebhook is the webhook tag dispatched after a push.
func (t Type) CreatedWebhook() string { return t.String() + ".created" }

// Well-known entity types.
var (
	ATSAttachment          = NewType(VerticalATS, "attachment")
	ATSRejectReason        = NewType(VerticalATS, "rejectreason")
	CRMNote                = NewType(VerticalCRM, "note")
	CRMDeal                = NewType(VerticalCRM, "deal")
	CRMStage               = NewType(VerticalCRM, "stage")
	CRMUser                = NewType(VerticalCRM, "user")
	CRMContact             = NewType(VerticalCRM, "contact")
	CRMCompany             = NewType(VerticalCRM, "company")
	ATSCandidate           = NewType(VerticalATS, "candidate")
	FileStorageUser        = NewType(VerticalFileStorage, "user")
	HRISEmployee           = NewType(VerticalHRIS, "employee")
	HRISPayrollRun         = NewType(VerticalHRIS, "payrollrun")
	HRISEmployeePayrollRun = NewType(VerticalHRIS, "employeepayrollrun")
)
