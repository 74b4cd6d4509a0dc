package reasoner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/domain"
)

func TestBuildNarrativePrompt_ShortCircuitsWithNoPeopleAndNoStrangers(t *testing.T) {
	ev := &domain.Event{}
	_, _, ok := BuildNarrativePrompt(ev)
	assert.False(t, ok)
}

func TestBuildNarrativePrompt_ProceedsWithUnresolvedStrangersOnly(t *testing.T) {
	ev := &domain.Event{
		StartTime:              time.Now(),
		EndTime:                time.Now(),
		HasUnresolvedStrangers: true,
	}
	sys, user, ok := BuildNarrativePrompt(ev)
	require.True(t, ok)
	assert.NotEmpty(t, sys)
	assert.NotEmpty(t, user)
}

func TestBuildTimeline_RendersOneLinePerClip(t *testing.T) {
	id := uuid.New()
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	ev := &domain.Event{Clips: []*domain.ClipResult{
		{Camera: "front_door", StartTime: base, FramePeople: [][]domain.Detection{{
			{Identity: domain.IdentityResult{PersonID: &id, Role: domain.RoleOwner}},
		}}},
		{Camera: "backyard", StartTime: base.Add(time.Minute), FramePeople: nil},
	}}

	timeline := BuildTimeline(ev)
	lines := splitLines(timeline)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "front_door")
	assert.Contains(t, lines[0], "resident")
	assert.Contains(t, lines[1], "no one visible")
}

func TestActivityLevel_HighDensityBeatsLow(t *testing.T) {
	sparse := &domain.ClipResult{FramePeople: [][]domain.Detection{{{}}}}
	dense := &domain.ClipResult{FramePeople: [][]domain.Detection{{{}, {}}, {{}, {}}}}

	assert.Equal(t, "low", activityLevel(sparse))
	assert.Equal(t, "high", activityLevel(dense))
}

func TestDurationNote_OmittedForShortClips(t *testing.T) {
	clip := &domain.ClipResult{FramePeople: [][]domain.Detection{{}, {}, {}}}
	assert.Empty(t, durationNote(clip))
}

func TestDurationNote_PresentForLongerClips(t *testing.T) {
	base := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	frames := make([][]domain.Detection, 7)
	for i := range frames {
		frames[i] = []domain.Detection{{FrameTime: base.Add(time.Duration(i) * time.Second)}}
	}
	clip := &domain.ClipResult{FramePeople: frames}
	assert.Equal(t, "lasting about 6s", durationNote(clip))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
