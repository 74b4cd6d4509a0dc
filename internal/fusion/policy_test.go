package fusion

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/domain"
)

func clipAt(t0 time.Time, dets ...domain.Detection) *domain.ClipResult {
	return &domain.ClipResult{
		Camera:      "front_door",
		StartTime:   t0,
		FramePeople: [][]domain.Detection{dets},
	}
}

func ownerDet(id uuid.UUID) domain.Detection {
	return domain.Detection{Identity: domain.IdentityResult{PersonID: &id, Role: domain.RoleOwner, Method: domain.MethodFace}}
}

func strangerDet() domain.Detection {
	return domain.Detection{Identity: domain.IdentityResult{Role: domain.RoleStranger, Method: domain.MethodMiss}}
}

func TestIsConnected_SamePersonWithinThreshold(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	id := uuid.New()
	base := time.Now()

	last := clipAt(base, ownerDet(id))
	current := clipAt(base.Add(30*time.Second), ownerDet(id))

	assert.True(t, p.IsConnected(last, current))
}

func TestIsConnected_TimeRuleRejectsOutOfWindow(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	id := uuid.New()
	base := time.Now()

	last := clipAt(base, ownerDet(id))
	current := clipAt(base.Add(90*time.Second), ownerDet(id))

	assert.False(t, p.IsConnected(last, current))
}

func TestIsConnected_TimeRuleRejectsOutOfOrder(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	id := uuid.New()
	base := time.Now()

	last := clipAt(base, ownerDet(id))
	current := clipAt(base.Add(-10*time.Second), ownerDet(id))

	assert.False(t, p.IsConnected(last, current))
}

func TestIsConnected_StrangerContinuityWindow(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	base := time.Now()

	last := clipAt(base, strangerDet())
	within := clipAt(base.Add(9*time.Second), strangerDet())
	outside := clipAt(base.Add(11*time.Second), strangerDet())

	assert.True(t, p.IsConnected(last, within), "strangers within 10s should connect")
	assert.False(t, p.IsConnected(last, outside), "strangers past 10s should not connect on identity alone")
}

func TestIsConnected_FamilyStrangerHandoffWindow(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	base := time.Now()

	last := clipAt(base, ownerDet(uuid.New()))
	within := clipAt(base.Add(4*time.Second), strangerDet())
	outside := clipAt(base.Add(6*time.Second), strangerDet())

	assert.True(t, p.IsConnected(last, within), "family->stranger handoff within 5s should connect")
	assert.False(t, p.IsConnected(last, outside), "family->stranger handoff past 5s should not connect")
}

func TestIsConnected_UnrelatedPeopleDoNotConnect(t *testing.T) {
	p := NewPolicy(60 * time.Second)
	base := time.Now()

	last := clipAt(base, ownerDet(uuid.New()))
	current := clipAt(base.Add(30*time.Second), ownerDet(uuid.New()))

	assert.False(t, p.IsConnected(last, current))
}

func TestFuse_GroupsConnectedClipsIntoOneEvent(t *testing.T) {
	id := uuid.New()
	base := time.Now()

	clips := []*domain.ClipResult{
		clipAt(base, ownerDet(id)),
		clipAt(base.Add(20*time.Second), ownerDet(id)),
		clipAt(base.Add(5*time.Minute), ownerDet(id)),
	}

	events := Fuse(NewPolicy(60*time.Second), clips)
	require.Len(t, events, 2)
	assert.Len(t, events[0].Clips, 2)
	assert.Len(t, events[1].Clips, 1)
}

func TestFuse_SortsOutOfOrderInputClips(t *testing.T) {
	id := uuid.New()
	base := time.Now()

	clips := []*domain.ClipResult{
		clipAt(base.Add(20*time.Second), ownerDet(id)),
		clipAt(base, ownerDet(id)),
	}

	events := Fuse(NewPolicy(60*time.Second), clips)
	require.Len(t, events, 1)
	assert.Equal(t, base, events[0].StartTime)
}

func TestAggregate_DistinguishesNoPeopleFromUnresolvedStrangers(t *testing.T) {
	ev := &domain.Event{Clips: []*domain.ClipResult{clipAt(time.Now())}}
	Aggregate(ev)
	assert.False(t, ev.HasUnresolvedStrangers)
	assert.Empty(t, ev.PeopleIDs)

	evWithStranger := &domain.Event{Clips: []*domain.ClipResult{clipAt(time.Now(), strangerDet())}}
	Aggregate(evWithStranger)
	assert.True(t, evWithStranger.HasUnresolvedStrangers)
	assert.Equal(t, 1, evWithStranger.StrangerCount)
}

func TestAggregate_TracksCamerasAndLastSeenPerPerson(t *testing.T) {
	id := uuid.New()
	base := time.Now()

	ev := &domain.Event{Clips: []*domain.ClipResult{
		clipAt(base, ownerDet(id)),
		{Camera: "backyard", StartTime: base.Add(time.Minute), FramePeople: [][]domain.Detection{{ownerDet(id)}}},
	}}
	Aggregate(ev)

	pi := ev.PeopleInfo[id]
	require.NotNil(t, pi)
	assert.Len(t, pi.Cameras, 2)
	assert.Equal(t, base.Add(time.Minute), pi.LastSeen)
}
