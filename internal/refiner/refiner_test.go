package refiner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/memoryd/internal/domain"
)

func detWith(id *uuid.UUID, role domain.Role) domain.Detection {
	return domain.Detection{Identity: domain.IdentityResult{PersonID: id, Role: role}}
}

func eventOf(frames ...[]domain.Detection) *domain.Event {
	return &domain.Event{
		Clips: []*domain.ClipResult{{
			Camera:      "front_door",
			StartTime:   time.Now(),
			FramePeople: frames,
		}},
	}
}

func TestRefine_PromotesRepeatedSuspectedFamilyToFamily(t *testing.T) {
	id := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
	)

	Refine(ev)

	for _, frame := range ev.Clips[0].FramePeople {
		assert.Equal(t, domain.RoleFamily, frame[0].Identity.Role)
		assert.Equal(t, domain.MethodRefinedFromSuspected, frame[0].Identity.Method)
	}
}

func TestRefine_DoesNotPromoteSuspectedFamilySeenLessThanThrice(t *testing.T) {
	id := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
	)

	Refine(ev)

	assert.Equal(t, domain.RoleSuspectedFamily, ev.Clips[0].FramePeople[0][0].Identity.Role)
}

func TestRefine_PromotesAnonymousStrangersWhenFamilyPresentAndStrangersFrequent(t *testing.T) {
	famID := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&famID, domain.RoleFamily), detWith(nil, domain.RoleStranger)},
		[]domain.Detection{detWith(nil, domain.RoleStranger)},
		[]domain.Detection{detWith(nil, domain.RoleStranger)},
	)

	Refine(ev)

	assert.Equal(t, domain.RoleSuspectedFamily, ev.Clips[0].FramePeople[0][1].Identity.Role)
	assert.Equal(t, domain.MethodRefinedFromStranger, ev.Clips[0].FramePeople[0][1].Identity.Method)
}

func TestRefine_LeavesAnonymousStrangersAloneWithoutFamilyContext(t *testing.T) {
	ev := eventOf(
		[]domain.Detection{detWith(nil, domain.RoleStranger)},
		[]domain.Detection{detWith(nil, domain.RoleStranger)},
		[]domain.Detection{detWith(nil, domain.RoleStranger)},
	)

	Refine(ev)

	for _, frame := range ev.Clips[0].FramePeople {
		assert.Equal(t, domain.RoleStranger, frame[0].Identity.Role)
	}
}

func TestRefine_PromotesIdentifiedCooccurrenceWithFamilyInSameFrame(t *testing.T) {
	famID := uuid.New()
	visitorID := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&famID, domain.RoleFamily), detWith(&visitorID, domain.RoleSuspectedFamily)},
	)

	Refine(ev)

	frame := ev.Clips[0].FramePeople[0]
	assert.Equal(t, domain.RoleFamily, frame[1].Identity.Role)
	assert.Equal(t, domain.MethodRefinedFromContext, frame[1].Identity.Method)
}

func TestRefine_DoesNotPromoteAnonymousStrangerViaCooccurrenceRule(t *testing.T) {
	famID := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&famID, domain.RoleFamily), detWith(nil, domain.RoleStranger)},
	)

	Refine(ev)

	frame := ev.Clips[0].FramePeople[0]
	assert.Equal(t, domain.RoleStranger, frame[1].Identity.Role, "anonymous strangers are only promoted via rule 2, not rule 3")
}

func TestRefine_ReaggregatesAfterMutation(t *testing.T) {
	id := uuid.New()
	ev := eventOf(
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
		[]domain.Detection{detWith(&id, domain.RoleSuspectedFamily)},
	)

	Refine(ev)

	pi := ev.PeopleInfo[id]
	assert.NotNil(t, pi)
	assert.Equal(t, domain.RoleFamily, pi.Role)
}

func TestRefine_EmptyEventIsNoop(t *testing.T) {
	ev := &domain.Event{}
	assert.NotPanics(t, func() { Refine(ev) })
}
