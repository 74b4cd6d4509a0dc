package persist_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/persist"
	"github.com/your-org/memoryd/internal/store"
)

var errInsertFailed = errors.New("insert appearance boom")

func newMockPersister(t *testing.T) (*persist.Persister, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	st := &store.Store{Pool: mock}
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	return persist.New(st, log), mock
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) { return len(p), nil }

func detectionFor(personID *uuid.UUID, role domain.Role, method domain.Method) domain.Detection {
	return domain.Detection{
		FrameIndex: 0,
		FrameTime:  time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
		BBox:       domain.BBox{X: 10, Y: 10, W: 20, H: 40},
		Identity: domain.IdentityResult{
			PersonID: personID,
			Role:     role,
			Method:   method,
			BodyVec:  []float32{0.1, 0.2, 0.3},
		},
	}
}

func eventFor(dets ...domain.Detection) *domain.Event {
	return &domain.Event{
		StartTime: time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
		Clips: []*domain.ClipResult{
			{
				VideoPath:   "front_door/clip1.mp4",
				Camera:      "front_door",
				StartTime:   time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC),
				FrameW:      1920,
				FrameH:      1080,
				FramePeople: [][]domain.Detection{dets},
			},
		},
	}
}

func TestPersist_NoClipsIsNoOp(t *testing.T) {
	p, mock := newMockPersister(t)

	id, err := p.Persist(context.Background(), &domain.Event{})
	require.NoError(t, err)
	require.Equal(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_KnownPersonWritesAppearanceAndRoleUpdate(t *testing.T) {
	p, mock := newMockPersister(t)
	personID := uuid.New()
	ev := eventFor(detectionFor(&personID, domain.RoleOwner, domain.MethodFace))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_logs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_appearances").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE persons").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id, err := p.Persist(context.Background(), ev)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_StrangerCreatesNewPersonAndAppearance(t *testing.T) {
	p, mock := newMockPersister(t)
	ev := eventFor(detectionFor(nil, domain.RoleStranger, domain.MethodNew))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_logs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO persons").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_appearances").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := p.Persist(context.Background(), ev)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_SkipsAppearanceWithNoBodyEmbedding(t *testing.T) {
	p, mock := newMockPersister(t)
	personID := uuid.New()
	det := detectionFor(&personID, domain.RoleOwner, domain.MethodFace)
	det.Identity.BodyVec = nil
	ev := eventFor(det)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_logs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	id, err := p.Persist(context.Background(), ev)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_SuspectedFamilyMapsToUnknownRole(t *testing.T) {
	p, mock := newMockPersister(t)
	personID := uuid.New()
	ev := eventFor(detectionFor(&personID, domain.RoleSuspectedFamily, domain.MethodBody))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_logs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_appearances").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE persons").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	id, err := p.Persist(context.Background(), ev)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPersist_RollsBackOnAppearanceInsertFailure(t *testing.T) {
	p, mock := newMockPersister(t)
	personID := uuid.New()
	ev := eventFor(detectionFor(&personID, domain.RoleOwner, domain.MethodFace))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO event_logs").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_appearances").WillReturnError(errInsertFailed)
	mock.ExpectRollback()

	id, err := p.Persist(context.Background(), ev)
	require.Error(t, err)
	require.Equal(t, uuid.Nil, id)
	require.NoError(t, mock.ExpectationsWereMet())
}
