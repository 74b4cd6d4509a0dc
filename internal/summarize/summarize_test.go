package summarize_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/store"
	"github.com/your-org/memoryd/internal/summarize"
)

var errNoRows = pgx.ErrNoRows

func newMockSummarizer(t *testing.T) (*summarize.Summarizer, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	st := &store.Store{Pool: mock}
	return summarize.New(st, nil), mock
}

func TestSummarizeDay_ReturnsExistingSummaryWithoutForce(t *testing.T) {
	s, mock := newMockSummarizer(t)
	date := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, summary_date, summary_text").
		WillReturnRows(pgxmock.NewRows([]string{"id", "summary_date", "summary_text", "created_at", "updated_at"}).
			AddRow(uuid.New(), date, "cached summary text", time.Now(), time.Now()))

	text, err := s.SummarizeDay(context.Background(), date, false)
	require.NoError(t, err)
	require.Equal(t, "cached summary text", text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarizeDay_NoEventsReturnsFixedMessageWithoutPersisting(t *testing.T) {
	s, mock := newMockSummarizer(t)
	date := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, summary_date, summary_text").
		WillReturnError(errNoRows)
	mock.ExpectQuery("SELECT id, video_filename, start_time, camera_location, llm_description, created_at").
		WillReturnRows(pgxmock.NewRows([]string{"id", "video_filename", "start_time", "camera_location", "llm_description", "created_at"}))

	text, err := s.SummarizeDay(context.Background(), date, false)
	require.NoError(t, err)
	require.Equal(t, "No events were recorded today.", text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarizeAll_SkipsDatesWithExistingSummaryUnlessForced(t *testing.T) {
	s, mock := newMockSummarizer(t)
	d1 := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT DISTINCT").
		WillReturnRows(pgxmock.NewRows([]string{"date"}).AddRow(d1))
	mock.ExpectQuery("SELECT id, summary_date, summary_text").
		WillReturnRows(pgxmock.NewRows([]string{"id", "summary_date", "summary_text", "created_at", "updated_at"}).
			AddRow(uuid.New(), d1, "already summarized", time.Now(), time.Now()))

	count, err := s.SummarizeAll(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 0, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
