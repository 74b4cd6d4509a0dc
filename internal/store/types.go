package store

import (
	"time"

	"github.com/google/uuid"
)

// Role is the storage-layer role enum persons are collapsed into on write.
// Phase G maps the richer domain.Role onto this narrower set.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleVisitor Role = "visitor"
	RoleUnknown Role = "unknown"
)

// MatchMethod is the storage-layer provenance enum for an appearance.
type MatchMethod string

const (
	MatchFace             MatchMethod = "face"
	MatchBodyReID         MatchMethod = "body_reid"
	MatchBodyReIDRefined  MatchMethod = "body_reid_refined"
	MatchNew              MatchMethod = "new"
	MatchUnknown          MatchMethod = "unknown"
)

// Person is an enrolled or discovered identity. Owners must have at least
// one PersonFace row; strangers persisted by Phase G have none.
type Person struct {
	ID                   uuid.UUID
	Name                 string
	Role                 Role
	CurrentBodyEmbedding []float32 // 2048-dim, L2-normalized, nil if never set
	BodyUpdateTime       *time.Time
	FirstSeen            time.Time
	LastSeen             time.Time
	Notes                string
}

// PersonFace is an immutable reference face embedding tied to one source
// image, used only by the enrollment registry and the arbiter's face path.
type PersonFace struct {
	ID            uuid.UUID
	PersonID      uuid.UUID
	Embedding     []float32 // 512-dim, L2-normalized
	SourceImage   string    // basename of the enrollment photo, idempotency key
	CreatedAt     time.Time
}

// StoredEvent is one persisted occurrence, immutable after insert.
type StoredEvent struct {
	ID              uuid.UUID
	VideoFilename   string
	StartTime       time.Time
	CameraLocation  string // comma-joined distinct camera names
	LLMDescription  string
	CreatedAt       time.Time
}

// StoredAppearance is one person's representative sighting within a
// StoredEvent.
type StoredAppearance struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	PersonID      uuid.UUID
	MatchMethod   MatchMethod
	BodyEmbedding []float32 // 2048-dim, L2-normalized
	CreatedAt     time.Time
}

// DailySummary is the one-per-day narrative rollup produced by Phase H.
type DailySummary struct {
	ID          uuid.UUID
	SummaryDate time.Time // date-only, unique
	SummaryText string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
