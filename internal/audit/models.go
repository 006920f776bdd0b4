// Package audit defines the audit trail model and the recording service that
// owns entry lifecycle. Entries are append-only: they are created exactly once
// per completed operation, never updated, and deleted only by retention sweeps.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind classifies what an operation did.
type ActionKind string

const (
	ActionCreate ActionKind = "CREATE"
	ActionUpdate ActionKind = "UPDATE"
	ActionDelete ActionKind = "DELETE"
	ActionView   ActionKind = "VIEW"
	ActionLogin  ActionKind = "LOGIN"
	ActionLogout ActionKind = "LOGOUT"
	ActionUpload ActionKind = "UPLOAD"
)

// EntityKind names the business entity an operation touched.
type EntityKind string

const (
	EntityUser     EntityKind = "USER"
	EntityProperty EntityKind = "PROPERTY"
	EntityContract EntityKind = "CONTRACT"
	EntitySession  EntityKind = "SESSION"
	EntityDocument EntityKind = "DOCUMENT"
)

// RequestSource classifies where a request came from, derived from the
// captured User-Agent when the caller does not say otherwise.
type RequestSource string

const (
	SourceWeb     RequestSource = "WEB"
	SourceMobile  RequestSource = "MOBILE"
	SourceBot     RequestSource = "BOT"
	SourceAPI     RequestSource = "API"
	SourceUnknown RequestSource = "UNKNOWN"
)

// Descriptor is the static audit metadata attached to an operation at its
// call site. One descriptor per operation kind; never mutated.
type Descriptor struct {
	Action      ActionKind
	EntityType  EntityKind
	Description string

	// EntityID, when set, wins over any identifier extracted from the
	// operation's result.
	EntityID string

	// ResultIDFields overrides the field names probed in the result payload
	// when looking for an entity identifier. Order is precedence. Empty means
	// DefaultResultIDFields.
	ResultIDFields []string
}

// DefaultResultIDFields are the result payload keys probed for an entity
// identifier when a descriptor does not name its own.
var DefaultResultIDFields = []string{"id", "userId", "propertyId", "contractId"}

// Input is a request to create one audit entry. The recorder sanitizes and
// normalizes it before persistence; empty strings mean "absent".
type Input struct {
	ActorID      string
	IPAddress    string
	UserAgent    string
	Action       ActionKind
	EntityType   EntityKind
	EntityID     string
	Description  string
	Metadata     map[string]any
	OldValues    map[string]any
	NewValues    map[string]any
	Success      bool
	ErrorMessage string
	Source       RequestSource
}

// Entry is a persisted audit record. Nil pointer fields persist as NULL.
type Entry struct {
	ID           uuid.UUID      `json:"id"`
	ActorID      *string        `json:"actorId,omitempty"`
	IPAddress    *string        `json:"ipAddress,omitempty"`
	UserAgent    *string        `json:"userAgent,omitempty"`
	Action       ActionKind     `json:"action"`
	EntityType   EntityKind     `json:"entityType"`
	EntityID     *string        `json:"entityId,omitempty"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OldValues    map[string]any `json:"oldValues,omitempty"`
	NewValues    map[string]any `json:"newValues,omitempty"`
	Success      bool           `json:"success"`
	ErrorMessage *string        `json:"errorMessage,omitempty"`
	Source       RequestSource  `json:"source"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Filter narrows a query. Zero values mean "no constraint", never
// "match empty".
type Filter struct {
	ActorID     string
	Action      ActionKind
	EntityType  EntityKind
	EntityID    string
	Success     *bool
	Source      RequestSource
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Limit  int
	Offset int
}

// Statistics aggregates entries created within a trailing window.
type Statistics struct {
	Total          int64                `json:"total"`
	SuccessCount   int64                `json:"successCount"`
	FailureCount   int64                `json:"failureCount"`
	DistinctActors int64                `json:"distinctActors"`
	ByAction       map[ActionKind]int64 `json:"byAction"`
	ByEntityType   map[EntityKind]int64 `json:"byEntityType"`
}
