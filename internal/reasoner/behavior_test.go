package reasoner

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
)

func testBehaviorConfig() config.BehaviorConfig {
	return config.BehaviorConfig{
		DeliveryCues:       []string{"dropped off a package", "delivery driver"},
		ToolCues:           []string{"toolbox", "ladder"},
		CleaningCues:       []string{"vacuum", "mop"},
		StrongDeliveryCues: []string{"holding a package", "carried a parcel to the door"},
	}
}

func TestInferRoleOverride_DeliveryCue(t *testing.T) {
	role, ok := InferRoleOverride("A delivery driver dropped off a package at the door.", testBehaviorConfig())
	require.True(t, ok)
	assert.Equal(t, domain.RoleDelivery, role)
}

func TestInferRoleOverride_ToolAndCleaningCuesBothMapToService(t *testing.T) {
	role, ok := InferRoleOverride("The visitor carried a ladder into the yard.", testBehaviorConfig())
	require.True(t, ok)
	assert.Equal(t, domain.RoleService, role)

	role, ok = InferRoleOverride("Someone used a vacuum in the living room.", testBehaviorConfig())
	require.True(t, ok)
	assert.Equal(t, domain.RoleService, role)
}

func TestInferRoleOverride_NoMatchReturnsFalse(t *testing.T) {
	_, ok := InferRoleOverride("Just someone walking by.", testBehaviorConfig())
	assert.False(t, ok)
}

func TestApplyBehaviorOverride_SkipsOwnerAndWeakFamilyCue(t *testing.T) {
	ownerID, familyID, visitorID := uuid.New(), uuid.New(), uuid.New()
	ev := &domain.Event{PeopleInfo: map[uuid.UUID]*domain.PersonInfo{
		ownerID:   {PersonID: &ownerID, Role: domain.RoleOwner},
		familyID:  {PersonID: &familyID, Role: domain.RoleFamily},
		visitorID: {PersonID: &visitorID, Role: domain.RoleVisitor},
	}}

	ApplyBehaviorOverride(ev, domain.RoleDelivery, "A delivery driver dropped off a package at the door.", testBehaviorConfig())

	assert.Equal(t, domain.RoleOwner, ev.PeopleInfo[ownerID].Role)
	assert.Equal(t, domain.RoleFamily, ev.PeopleInfo[familyID].Role)
	assert.Equal(t, domain.RoleDelivery, ev.PeopleInfo[visitorID].Role)
}

func TestApplyBehaviorOverride_StrongCueOverridesFamilyAndSuspectedFamily(t *testing.T) {
	familyID, suspectedID := uuid.New(), uuid.New()
	ev := &domain.Event{PeopleInfo: map[uuid.UUID]*domain.PersonInfo{
		familyID:    {PersonID: &familyID, Role: domain.RoleFamily},
		suspectedID: {PersonID: &suspectedID, Role: domain.RoleSuspectedFamily},
	}}

	ApplyBehaviorOverride(ev, domain.RoleDelivery, "They were holding a package at the front door.", testBehaviorConfig())

	assert.Equal(t, domain.RoleDelivery, ev.PeopleInfo[familyID].Role)
	assert.Equal(t, domain.RoleDelivery, ev.PeopleInfo[suspectedID].Role)
}
