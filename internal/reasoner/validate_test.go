package reasoner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/memoryd/internal/domain"
)

func eventWith(role domain.Role, unresolvedStrangers bool) *domain.Event {
	id := uuid.New()
	ev := &domain.Event{
		PeopleIDs:  map[uuid.UUID]bool{id: true},
		PeopleInfo: map[uuid.UUID]*domain.PersonInfo{id: {PersonID: &id, Role: role}},
	}
	ev.HasUnresolvedStrangers = unresolvedStrangers
	return ev
}

func TestValidate_FlagsUnsupportedFamilyClaim(t *testing.T) {
	ev := &domain.Event{PeopleInfo: map[uuid.UUID]*domain.PersonInfo{}}
	result := Validate(ev, "A family member entered through the front door.")
	assert.False(t, result.OK)
	assert.Len(t, result.Warnings, 1)
}

func TestValidate_AllowsSupportedFamilyClaim(t *testing.T) {
	ev := eventWith(domain.RoleOwner, false)
	result := Validate(ev, "A family member entered through the front door.")
	assert.True(t, result.OK)
}

func TestValidate_FlagsUnsupportedStrangerClaim(t *testing.T) {
	ev := &domain.Event{PeopleInfo: map[uuid.UUID]*domain.PersonInfo{}}
	result := Validate(ev, "An unidentified person lingered by the gate.")
	assert.False(t, result.OK)
}

func TestValidate_AllowsStrangerClaimWhenUnresolvedStrangersPresent(t *testing.T) {
	ev := eventWith(domain.RoleOwner, true)
	result := Validate(ev, "An unidentified person lingered by the gate.")
	assert.True(t, result.OK)
}

func TestValidate_NegatedMentionIsNotAHallucination(t *testing.T) {
	ev := &domain.Event{PeopleInfo: map[uuid.UUID]*domain.PersonInfo{}}
	result := Validate(ev, "No stranger was seen near the house today.")
	assert.True(t, result.OK, "a negated mention describes an absence, not a claim")
}
