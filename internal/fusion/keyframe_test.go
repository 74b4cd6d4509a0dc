package fusion

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/your-org/memoryd/internal/domain"
)

func TestSelectKeyframe_FaceOutranksBody(t *testing.T) {
	face := domain.Detection{FrameIndex: 0, BBox: domain.BBox{W: 10, H: 10}, Identity: domain.IdentityResult{Method: domain.MethodFace, Confidence: 0.5}}
	body := domain.Detection{FrameIndex: 1, BBox: domain.BBox{W: 10, H: 10}, Identity: domain.IdentityResult{Method: domain.MethodBody, Confidence: 0.99}}

	best := SelectKeyframe([]domain.Detection{body, face}, 1920, 1080)
	assert.Equal(t, domain.MethodFace, best.Identity.Method)
}

func TestSelectKeyframe_TiesBreakByEarliestFrame(t *testing.T) {
	a := domain.Detection{FrameIndex: 5, BBox: domain.BBox{W: 10, H: 10}, Identity: domain.IdentityResult{Method: domain.MethodFace, Confidence: 0.5}}
	b := domain.Detection{FrameIndex: 2, BBox: domain.BBox{W: 10, H: 10}, Identity: domain.IdentityResult{Method: domain.MethodFace, Confidence: 0.5}}

	best := SelectKeyframe([]domain.Detection{a, b}, 100, 100)
	assert.Equal(t, 2, best.FrameIndex)
}

func TestStrangerBucketKey_FallsBackToIncrementingIndexWithoutBodyVec(t *testing.T) {
	idx := 0
	k1 := StrangerBucketKey(nil, &idx)
	k2 := StrangerBucketKey(nil, &idx)
	assert.NotEqual(t, k1, k2)
	assert.Equal(t, "stranger_idx_1", k1)
	assert.Equal(t, "stranger_idx_2", k2)
}

func TestStrangerBucketKey_StableForIdenticalEmbeddings(t *testing.T) {
	vec := make([]float32, 30)
	for i := range vec {
		vec[i] = float32(i) * 0.1
	}
	idx1, idx2 := 0, 0
	assert.Equal(t, StrangerBucketKey(vec, &idx1), StrangerBucketKey(vec, &idx2))
}

func TestGroupByPerson_BucketsUnresolvedSeparatelyFromKnown(t *testing.T) {
	known := ownerDet(uuid.New())
	stranger1 := domain.Detection{Identity: domain.IdentityResult{Role: domain.RoleStranger}}
	stranger2 := domain.Detection{Identity: domain.IdentityResult{Role: domain.RoleStranger}}

	ev := &domain.Event{Clips: []*domain.ClipResult{clipAt(time.Now(), known, stranger1, stranger2)}}
	groups := GroupByPerson(ev)

	assert.Len(t, groups, 3)
}
