// Package arbiter implements the Phase C identity arbiter: a tiered
// face/body/soft-body matching policy backed by a per-person body-vector
// cache. Cache writes are serialized per Person via a keyed mutex — never a
// single global lock — so concurrent clip scanners resolving different
// people never contend with each other.
package arbiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/store"
)

// keyedMutex hands out one *sync.Mutex per key, lazily, and never releases
// the map entry — an acceptable tradeoff since the number of distinct
// persons in a residence is small and bounded.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

type Arbiter struct {
	store *store.Store
	cfg   config.IdentityConfig
	locks *keyedMutex
}

func New(st *store.Store, cfg config.IdentityConfig) *Arbiter {
	return &Arbiter{store: st, cfg: cfg, locks: newKeyedMutex()}
}

// Identify resolves one detection's identity per the four-tier policy in
// spec §4.C: face match, fresh body match, soft body match, or miss. First
// match wins; face and body tiers refresh the person's body cache under
// that person's keyed lock, soft-body and miss never write it.
func (a *Arbiter) Identify(ctx context.Context, faceVec, bodyVec []float32, clipTime time.Time) (domain.IdentityResult, error) {
	if len(faceVec) > 0 {
		matches, err := a.store.SearchFaceMatches(ctx, faceVec, a.cfg.FaceThreshold)
		if err != nil {
			return domain.IdentityResult{}, fmt.Errorf("face search: %w", err)
		}
		if len(matches) > 0 {
			best := matches[0]
			if len(bodyVec) > 0 {
				unlock := a.locks.lock(best.PersonID)
				err := a.store.UpdateBodyCache(ctx, best.PersonID, bodyVec, clipTime)
				unlock()
				if err != nil {
					return domain.IdentityResult{}, fmt.Errorf("refresh body cache: %w", err)
				}
			} else {
				unlock := a.locks.lock(best.PersonID)
				err := a.store.TouchLastSeen(ctx, best.PersonID, clipTime)
				unlock()
				if err != nil {
					return domain.IdentityResult{}, fmt.Errorf("touch last seen: %w", err)
				}
			}
			id := best.PersonID
			return domain.IdentityResult{
				PersonID:   &id,
				Role:       domain.RoleOwner,
				Method:     domain.MethodFace,
				Confidence: best.Score,
				BodyVec:    bodyVec,
			}, nil
		}
	}

	if len(bodyVec) > 0 {
		freshSince := clipTime.Add(-a.cfg.BodyCacheFreshness)
		matches, err := a.store.SearchBodyMatches(ctx, bodyVec, a.cfg.BodyThreshold, freshSince)
		if err != nil {
			return domain.IdentityResult{}, fmt.Errorf("body search: %w", err)
		}
		if len(matches) > 0 {
			best := matches[0]
			unlock := a.locks.lock(best.PersonID)
			err := a.store.UpdateBodyCache(ctx, best.PersonID, bodyVec, clipTime)
			unlock()
			if err != nil {
				return domain.IdentityResult{}, fmt.Errorf("refresh body cache: %w", err)
			}
			id := best.PersonID
			return domain.IdentityResult{
				PersonID:   &id,
				Role:       domain.RoleOwner,
				Method:     domain.MethodBody,
				Confidence: best.Score,
				BodyVec:    bodyVec,
			}, nil
		}

		soft, err := a.store.SearchSoftBodyMatches(ctx, bodyVec, a.cfg.SoftThreshold, a.cfg.BodyThreshold)
		if err != nil {
			return domain.IdentityResult{}, fmt.Errorf("soft body search: %w", err)
		}
		if len(soft) > 0 {
			best := soft[0]
			id := best.PersonID
			return domain.IdentityResult{
				PersonID:   &id,
				Role:       domain.RoleSuspectedFamily,
				Method:     domain.MethodSoftBody,
				Confidence: best.Score,
				BodyVec:    bodyVec,
			}, nil
		}
	}

	return domain.IdentityResult{
		Role:    domain.RoleStranger,
		Method:  domain.MethodMiss,
		BodyVec: bodyVec,
	}, nil
}
