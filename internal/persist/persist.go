// Package persist implements Phase G: one transaction per event, writing
// the event row, a representative appearance per distinct person, and
// either a role/note update for a known person or a new stranger Person
// for an unresolved bucket. A failure at any step aborts the whole
// transaction — no partial writes for an event, mirroring the original
// persistence pipeline's single-commit-per-event behavior.
package persist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/fusion"
	"github.com/your-org/memoryd/internal/store"
)

type Persister struct {
	store *store.Store
	log   *slog.Logger
}

func New(st *store.Store, log *slog.Logger) *Persister {
	return &Persister{store: st, log: log}
}

// Persist writes ev and returns the new event_logs id. A no-op event (no
// clips) is not written and returns uuid.Nil, nil.
func (p *Persister) Persist(ctx context.Context, ev *domain.Event) (uuid.UUID, error) {
	if len(ev.Clips) == 0 {
		return uuid.Nil, nil
	}

	tx, err := p.store.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin event transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	storedEvent := &store.StoredEvent{
		ID:             uuid.New(),
		VideoFilename:  ev.Clips[0].VideoPath,
		StartTime:      ev.StartTime,
		CameraLocation: strings.Join(ev.Cameras(), ","),
		LLMDescription: ev.SummaryText,
	}
	if err := store.InsertEventTx(ctx, tx, storedEvent); err != nil {
		return uuid.Nil, err
	}

	// All cameras in a fixed installation share frame dimensions, so the
	// first clip's size is representative for keyframe center-distance
	// scoring across the whole event.
	frameW, frameH := ev.Clips[0].FrameW, ev.Clips[0].FrameH

	groups := fusion.GroupByPerson(ev)
	for key, dets := range groups {
		if len(dets) == 0 {
			continue
		}
		keyframe := fusion.SelectKeyframe(dets, frameW, frameH)

		if personID, err := uuid.Parse(key); err == nil {
			if err := p.persistKnownPerson(ctx, tx, storedEvent.ID, personID, keyframe); err != nil {
				return uuid.Nil, err
			}
			continue
		}

		if err := p.persistStranger(ctx, tx, storedEvent.ID, key, keyframe); err != nil {
			return uuid.Nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit event transaction: %w", err)
	}
	return storedEvent.ID, nil
}

func (p *Persister) persistKnownPerson(ctx context.Context, tx pgx.Tx, eventID, personID uuid.UUID, keyframe domain.Detection) error {
	if len(keyframe.Identity.BodyVec) == 0 {
		p.log.Warn("skipping appearance with no body embedding", "person_id", personID)
		return nil
	}

	appearance := &store.StoredAppearance{
		ID:            uuid.New(),
		EventID:       eventID,
		PersonID:      personID,
		MatchMethod:   mapMatchMethod(keyframe.Identity.Method),
		BodyEmbedding: keyframe.Identity.BodyVec,
	}
	if err := store.InsertAppearanceTx(ctx, tx, appearance); err != nil {
		return err
	}

	note := fmt.Sprintf("[%s via %s]", keyframe.Identity.Role, keyframe.Identity.Method)
	return store.UpdateRoleAndNoteTx(ctx, tx, personID, mapRole(keyframe.Identity.Role), note, keyframe.FrameTime)
}

func (p *Persister) persistStranger(ctx context.Context, tx pgx.Tx, eventID uuid.UUID, bucketKey string, keyframe domain.Detection) error {
	if len(keyframe.Identity.BodyVec) == 0 {
		p.log.Warn("skipping stranger bucket with no body embedding", "bucket", bucketKey)
		return nil
	}

	suffix := bucketKey
	if idx := strings.LastIndex(bucketKey, "_"); idx >= 0 {
		suffix = bucketKey[idx+1:]
	}
	name := fmt.Sprintf("Stranger_%s_%s", keyframe.FrameTime.Format("20060102_150405"), suffix)

	personID, err := store.CreateStrangerPersonTx(ctx, tx, name, mapRole(keyframe.Identity.Role), keyframe.Identity.BodyVec, keyframe.FrameTime)
	if err != nil {
		return err
	}

	appearance := &store.StoredAppearance{
		ID:            uuid.New(),
		EventID:       eventID,
		PersonID:      personID,
		MatchMethod:   mapMatchMethod(keyframe.Identity.Method),
		BodyEmbedding: keyframe.Identity.BodyVec,
	}
	return store.InsertAppearanceTx(ctx, tx, appearance)
}

// mapRole collapses the richer domain.Role onto the storage layer's
// {owner, visitor, unknown}, matching the original's _map_role_to_db:
// residents (owner/family) persist as owner, a person confirmed to have a
// reason to be present (visitor, delivery, service) persists as visitor, and
// everything else — including strangers, unknowns, and suspected_family,
// which the original's role map doesn't list and so falls through its
// dict.get default — persists as unknown.
func mapRole(r domain.Role) store.Role {
	switch r {
	case domain.RoleOwner, domain.RoleFamily:
		return store.RoleOwner
	case domain.RoleVisitor, domain.RoleDelivery, domain.RoleService:
		return store.RoleVisitor
	default:
		return store.RoleUnknown
	}
}

func mapMatchMethod(m domain.Method) store.MatchMethod {
	switch m {
	case domain.MethodFace:
		return store.MatchFace
	case domain.MethodBody, domain.MethodSoftBody:
		return store.MatchBodyReID
	case domain.MethodNew:
		return store.MatchNew
	case domain.MethodRefinedFromSuspected, domain.MethodRefinedFromStranger, domain.MethodRefinedFromContext:
		return store.MatchBodyReIDRefined
	default:
		return store.MatchUnknown
	}
}
