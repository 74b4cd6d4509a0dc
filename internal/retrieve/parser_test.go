package retrieve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAliases() AliasMaps {
	return AliasMaps{
		PersonAliases: map[string][]string{"mom": {"mom", "mother"}},
		ActionAliases: map[string][]string{"delivery": {"package", "delivered"}},
		SummaryCues:   []string{"today", "summary", "overall", "how was"},
	}
}

func TestParse_DefaultsToEventQuery(t *testing.T) {
	q := Parse("did anyone visit yesterday", testAliases(), time.Now())
	assert.Equal(t, QueryEvent, q.Type)
}

func TestParse_SummaryCueSwitchesQueryType(t *testing.T) {
	q := Parse("how was today overall", testAliases(), time.Now())
	assert.Equal(t, QuerySummary, q.Type)
}

func TestParse_MatchesPersonAlias(t *testing.T) {
	q := Parse("when did mother get home", testAliases(), time.Now())
	assert.Equal(t, "mom", q.PersonName)
}

func TestParse_MatchesActionAlias(t *testing.T) {
	q := Parse("was a package delivered today", testAliases(), time.Now())
	assert.Equal(t, "delivery", q.ActionLike)
}

func TestParse_LeavesFieldsEmptyWhenNoAliasMatches(t *testing.T) {
	q := Parse("random unrelated question", testAliases(), time.Now())
	assert.Empty(t, q.PersonName)
	assert.Empty(t, q.ActionLike)
	assert.Nil(t, q.From)
	assert.Nil(t, q.To)
}

func TestParse_TodayResolvesToMidnightBoundaries(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 22, 0, 0, time.UTC)
	q := Parse("summary for today", testAliases(), now)
	require.NotNil(t, q.From)
	require.NotNil(t, q.To)
	assert.Equal(t, time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), *q.From)
	assert.Equal(t, time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), *q.To)
}

func TestParse_YesterdayResolvesToPriorDay(t *testing.T) {
	now := time.Date(2026, 7, 30, 14, 22, 0, 0, time.UTC)
	q := Parse("what happened yesterday", testAliases(), now)
	require.NotNil(t, q.From)
	require.NotNil(t, q.To)
	assert.Equal(t, time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC), *q.From)
	assert.Equal(t, time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC), *q.To)
}

func TestParse_CaseInsensitiveMatching(t *testing.T) {
	q := Parse("Did MOM come by TODAY", testAliases(), time.Now())
	assert.Equal(t, "mom", q.PersonName)
	assert.Equal(t, QuerySummary, q.Type)
}
