// Package domain holds the in-memory types that flow between pipeline
// phases, as distinct from internal/store's persisted row types.
package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Role is a resolved identity's role at the point an arbiter decision was
// made. It is richer than the storage-layer role enum: Phase G maps it down
// to {owner, visitor, unknown} on write.
type Role string

const (
	RoleOwner           Role = "owner"
	RoleFamily          Role = "family"
	RoleSuspectedFamily Role = "suspected_family"
	RoleVisitor         Role = "visitor"
	RoleDelivery        Role = "delivery"
	RoleService         Role = "service"
	RoleStranger        Role = "stranger"
	RoleUnknown         Role = "unknown"
)

// Method names how an identity was resolved, carried through fusion,
// refinement and persistence so match provenance survives to storage.
type Method string

const (
	MethodFace                  Method = "face"
	MethodBody                  Method = "body"
	MethodSoftBody               Method = "soft_body"
	MethodNew                   Method = "new"
	MethodMiss                  Method = "unknown"
	MethodRefinedFromSuspected  Method = "refined_from_suspected"
	MethodRefinedFromStranger   Method = "refined_from_stranger"
	MethodRefinedFromContext    Method = "refined_from_context"
)

// BBox is a pixel-space axis-aligned bounding box, top-left origin.
type BBox struct {
	X, Y, W, H float64
}

func (b BBox) Area() float64 { return b.W * b.H }

func (b BBox) CenterDistance(frameW, frameH float64) float64 {
	cx, cy := b.X+b.W/2, b.Y+b.H/2
	fcx, fcy := frameW/2, frameH/2
	dx, dy := cx-fcx, cy-fcy
	return math.Sqrt(dx*dx + dy*dy)
}

// IdentityResult is the Phase C arbiter's decision for one detection.
type IdentityResult struct {
	PersonID   *uuid.UUID
	Role       Role
	Method     Method
	Confidence float64
	BodyVec    []float32 // echoed back so fusion can bucket unresolved strangers
}

// Detection is one resolved person sighting within one sampled frame.
type Detection struct {
	FrameIndex int
	FrameTime  time.Time
	BBox       BBox
	Identity   IdentityResult
}

// ClipResult is the Phase B scanner's output for a single input clip.
type ClipResult struct {
	VideoPath     string
	Camera        string
	StartTime     time.Time
	FrameW, FrameH float64
	// FramePeople groups resolved detections by the sampled frame they were
	// seen in, mirroring the original implementation's people_detected list
	// of per-frame lists.
	FramePeople [][]Detection
}

// PersonStats accumulates per-person appearance counts within one event,
// the input to the Phase E refiner's three ordered rules.
type PersonStats struct {
	Appearances int
	Roles       map[Role]bool
	FirstSeen   time.Time
	LastSeen    time.Time
	ClipIdxs    []int
}

// PersonInfo is one entry of an event's re-aggregated people_info map.
type PersonInfo struct {
	PersonID  *uuid.UUID
	Role      Role
	Method    Method
	FirstSeen time.Time
	LastSeen  time.Time
	Cameras   map[string]bool
}

// Event is the in-memory Global_Event produced by Phase D, mutated in place
// by Phase E, and consumed by Phases F and G.
type Event struct {
	StartTime time.Time
	EndTime   time.Time
	Clips     []*ClipResult

	PeopleIDs map[uuid.UUID]bool
	PeopleInfo map[uuid.UUID]*PersonInfo

	// HasUnresolvedStrangers and StrangerCount replace the original's
	// magic "-1" sentinel key in people_info: a dedicated field expresses
	// the same "strangers remain even though no person_id resolved them"
	// invariant without overloading a map key.
	HasUnresolvedStrangers bool
	StrangerCount          int

	SummaryText string
}

// Cameras returns the distinct, first-seen-order camera names across the
// event's clips.
func (e *Event) Cameras() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range e.Clips {
		if !seen[c.Camera] {
			seen[c.Camera] = true
			out = append(out, c.Camera)
		}
	}
	return out
}
