package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/store"
)

func newMockStore(t *testing.T) (*store.Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &store.Store{Pool: mock}, mock
}

func TestUpsertOwner_ReturnsPersonOnInsert(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO persons").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))

	p, err := st.UpsertOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", p.Name)
	require.Equal(t, store.RoleOwner, p.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindPersonByName_NotFoundReturnsNilNil(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, role").
		WillReturnError(pgx.ErrNoRows)

	p, err := st.FindPersonByName(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchFaceMatches_ParsesScoredRows(t *testing.T) {
	st, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT person_id, 1 - \\(embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"person_id", "score"}).AddRow(id, 0.93))

	matches, err := st.SearchFaceMatches(context.Background(), []float32{0.1, 0.2, 0.3}, 0.8)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, id, matches[0].PersonID)
	require.InDelta(t, 0.93, matches[0].Score, 0.0001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClearAll_TruncatesEverything(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("TRUNCATE event_appearances").WillReturnResult(pgxmock.NewResult("TRUNCATE", 0))

	err := st.ClearAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDistinctEventDates_ReturnsParsedDates(t *testing.T) {
	st, mock := newMockStore(t)
	d1 := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT DISTINCT").
		WillReturnRows(pgxmock.NewRows([]string{"date"}).AddRow(d1))

	dates, err := st.DistinctEventDates(context.Background())
	require.NoError(t, err)
	require.Len(t, dates, 1)
	require.Equal(t, d1, dates[0])
	require.NoError(t, mock.ExpectationsWereMet())
}
