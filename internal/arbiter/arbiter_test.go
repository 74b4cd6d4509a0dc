package arbiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/your-org/memoryd/internal/arbiter"
	"github.com/your-org/memoryd/internal/config"
	"github.com/your-org/memoryd/internal/domain"
	"github.com/your-org/memoryd/internal/store"
)

func testConfig() config.IdentityConfig {
	return config.IdentityConfig{
		FaceThreshold:      0.6,
		BodyThreshold:      0.7,
		SoftThreshold:      0.5,
		BodyCacheFreshness: 48 * time.Hour,
	}
}

func newMockArbiter(t *testing.T) (*arbiter.Arbiter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	st := &store.Store{Pool: mock}
	return arbiter.New(st, testConfig()), mock
}

func TestIdentify_FaceMatchWinsAndRefreshesBodyCache(t *testing.T) {
	a, mock := newMockArbiter(t)
	personID := uuid.New()

	mock.ExpectQuery("SELECT person_id, 1 - \\(embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"person_id", "score"}).AddRow(personID, 0.95))
	mock.ExpectExec("UPDATE persons SET current_body_embedding").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	result, err := a.Identify(context.Background(), []float32{0.1, 0.2}, []float32{0.3, 0.4}, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.MethodFace, result.Method)
	require.Equal(t, domain.RoleOwner, result.Role)
	require.Equal(t, personID, *result.PersonID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentify_FallsThroughToBodyTierWhenNoFaceMatch(t *testing.T) {
	a, mock := newMockArbiter(t)
	personID := uuid.New()

	mock.ExpectQuery("SELECT person_id, 1 - \\(embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"person_id", "score"}))
	mock.ExpectQuery("SELECT id, 1 - \\(current_body_embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"id", "score"}).AddRow(personID, 0.8))
	mock.ExpectExec("UPDATE persons SET current_body_embedding").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	result, err := a.Identify(context.Background(), []float32{0.5, 0.6}, []float32{0.1, 0.2}, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.MethodBody, result.Method)
	require.Equal(t, domain.RoleOwner, result.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentify_FallsThroughToSoftBodyWithoutWritingCache(t *testing.T) {
	a, mock := newMockArbiter(t)
	personID := uuid.New()

	mock.ExpectQuery("SELECT person_id, 1 - \\(embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"person_id", "score"}))
	mock.ExpectQuery("SELECT id, 1 - \\(current_body_embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"id", "score"}))
	mock.ExpectQuery("SELECT id, 1 - \\(current_body_embedding <=> \\$1\\) AS score FROM persons").
		WillReturnRows(pgxmock.NewRows([]string{"id", "score"}).AddRow(personID, 0.55))

	result, err := a.Identify(context.Background(), []float32{0.5, 0.6}, []float32{0.1, 0.2}, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.MethodSoftBody, result.Method)
	require.Equal(t, domain.RoleSuspectedFamily, result.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIdentify_MissReturnsStrangerWhenNoTierMatches(t *testing.T) {
	a, mock := newMockArbiter(t)

	mock.ExpectQuery("SELECT person_id, 1 - \\(embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"person_id", "score"}))
	mock.ExpectQuery("SELECT id, 1 - \\(current_body_embedding <=> \\$1\\) AS score").
		WillReturnRows(pgxmock.NewRows([]string{"id", "score"}))
	mock.ExpectQuery("SELECT id, 1 - \\(current_body_embedding <=> \\$1\\) AS score FROM persons").
		WillReturnRows(pgxmock.NewRows([]string{"id", "score"}))

	result, err := a.Identify(context.Background(), []float32{0.5, 0.6}, []float32{0.1, 0.2}, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.MethodMiss, result.Method)
	require.Equal(t, domain.RoleStranger, result.Role)
	require.Nil(t, result.PersonID)
	require.NoError(t, mock.ExpectationsWereMet())
}
