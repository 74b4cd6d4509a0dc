package retrieve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/store"
)

func rowWithDescription(desc string) store.AppearanceRow {
	return store.AppearanceRow{
		Event: store.StoredEvent{
			StartTime:       time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC),
			CameraLocation:  "front_door",
			LLMDescription:  desc,
		},
		PersonName: "mom",
		PersonRole: store.RoleOwner,
	}
}

func TestSynthesize_NoEvidenceReturnsFixedMessage(t *testing.T) {
	answer, err := Synthesize(context.Background(), nil, "who came by?", nil)
	require.NoError(t, err)
	assert.Equal(t, noEvidenceAnswer, answer)
}

func TestFormatEvidence_IncludesTimeCameraPersonAndDescription(t *testing.T) {
	out := formatEvidence([]store.AppearanceRow{rowWithDescription("collected the mail")})
	assert.Contains(t, out, "front_door")
	assert.Contains(t, out, "mom")
	assert.Contains(t, out, "collected the mail")
}

func TestFallbackAnswer_CapsAtThreeDescriptions(t *testing.T) {
	rows := []store.AppearanceRow{
		rowWithDescription("first"),
		rowWithDescription("second"),
		rowWithDescription("third"),
		rowWithDescription("fourth"),
	}
	out := fallbackAnswer(rows)
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "third")
	assert.NotContains(t, out, "fourth")
}
