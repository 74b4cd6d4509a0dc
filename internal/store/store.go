// Package store is the Postgres+pgvector persistence layer: schema
// management and CRUD for persons, person faces, stored events, stored
// appearances and daily summaries.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/memoryd/internal/config"
)

// PgxIface is the subset of *pgxpool.Pool's method set Store relies on,
// narrowed to an interface so tests can substitute pgxmock's pool in place
// of a live connection.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

type Store struct {
	Pool PgxIface
}

func New(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping store: %w", err)
	}

	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// schema is applied at startup; CREATE TABLE IF NOT EXISTS keeps it
// idempotent across repeated runs of any memoryd subcommand.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS persons (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL CHECK (role IN ('owner', 'visitor', 'unknown')),
	current_body_embedding vector(2048),
	body_update_time TIMESTAMPTZ,
	first_seen TIMESTAMPTZ NOT NULL,
	last_seen TIMESTAMPTZ NOT NULL,
	notes TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS person_faces (
	id UUID PRIMARY KEY,
	person_id UUID NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
	embedding vector(512) NOT NULL,
	source_image TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (person_id, source_image)
);

CREATE INDEX IF NOT EXISTS person_faces_embedding_idx ON person_faces
	USING ivfflat (embedding vector_cosine_ops);

CREATE INDEX IF NOT EXISTS persons_body_embedding_idx ON persons
	USING ivfflat (current_body_embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS event_logs (
	id UUID PRIMARY KEY,
	video_filename TEXT NOT NULL,
	start_time TIMESTAMPTZ NOT NULL,
	camera_location TEXT NOT NULL,
	llm_description TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS event_appearances (
	id UUID PRIMARY KEY,
	event_id UUID NOT NULL REFERENCES event_logs(id) ON DELETE CASCADE,
	person_id UUID NOT NULL REFERENCES persons(id),
	match_method TEXT NOT NULL CHECK (match_method IN ('face', 'body_reid', 'body_reid_refined', 'new', 'unknown')),
	body_embedding vector(2048),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS daily_summaries (
	id UUID PRIMARY KEY,
	summary_date DATE NOT NULL UNIQUE,
	summary_text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// ClearAll drops every row from every table, in FK-safe order. Backs the
// destructive clear-store CLI command, which the caller is responsible for
// gating behind an explicit confirmation.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		TRUNCATE event_appearances, event_logs, daily_summaries, person_faces, persons CASCADE;
	`)
	if err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}

// --- Persons ---

func (s *Store) UpsertOwner(ctx context.Context, name string) (*Person, error) {
	p := &Person{
		ID:        uuid.New(),
		Name:      name,
		Role:      RoleOwner,
		FirstSeen: time.Now(),
		LastSeen:  time.Now(),
	}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO persons (id, name, role, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
		RETURNING id`,
		p.ID, p.Name, p.Role, p.FirstSeen, p.LastSeen,
	).Scan(&p.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			// name collision path is handled by caller via FindPersonByName
			return nil, fmt.Errorf("owner %q already exists", name)
		}
		return nil, fmt.Errorf("upsert owner: %w", err)
	}
	return p, nil
}

func (s *Store) FindPersonByName(ctx context.Context, name string) (*Person, error) {
	p := &Person{}
	var bodyUpdate *time.Time
	var bodyVec *pgvector.Vector
	err := s.Pool.QueryRow(ctx, `
		SELECT id, name, role, current_body_embedding, body_update_time, first_seen, last_seen, notes
		FROM persons WHERE name = $1`, name,
	).Scan(&p.ID, &p.Name, &p.Role, &bodyVec, &bodyUpdate, &p.FirstSeen, &p.LastSeen, &p.Notes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find person by name: %w", err)
	}
	p.BodyUpdateTime = bodyUpdate
	if bodyVec != nil {
		p.CurrentBodyEmbedding = bodyVec.Slice()
	}
	return p, nil
}

func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (*Person, error) {
	p := &Person{ID: id}
	var bodyUpdate *time.Time
	var bodyVec *pgvector.Vector
	err := s.Pool.QueryRow(ctx, `
		SELECT name, role, current_body_embedding, body_update_time, first_seen, last_seen, notes
		FROM persons WHERE id = $1`, id,
	).Scan(&p.Name, &p.Role, &bodyVec, &bodyUpdate, &p.FirstSeen, &p.LastSeen, &p.Notes)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get person: %w", err)
	}
	p.BodyUpdateTime = bodyUpdate
	if bodyVec != nil {
		p.CurrentBodyEmbedding = bodyVec.Slice()
	}
	return p, nil
}

// UpdateBodyCache refreshes a person's current body embedding and cache
// timestamp. Callers MUST hold that person's keyed lock (see
// internal/arbiter) before calling this: it is the sole write path for the
// body cache and two concurrent writers racing on the same person would
// otherwise leave body_update_time inconsistent with the embedding it
// nominally timestamps.
func (s *Store) UpdateBodyCache(ctx context.Context, personID uuid.UUID, bodyVec []float32, seenAt time.Time) error {
	vec := pgvector.NewVector(bodyVec)
	_, err := s.Pool.Exec(ctx, `
		UPDATE persons SET current_body_embedding = $1, body_update_time = $2, last_seen = $3
		WHERE id = $4`,
		vec, seenAt, seenAt, personID)
	if err != nil {
		return fmt.Errorf("update body cache: %w", err)
	}
	return nil
}

func (s *Store) TouchLastSeen(ctx context.Context, personID uuid.UUID, seenAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `UPDATE persons SET last_seen = $1 WHERE id = $2`, seenAt, personID)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// UpdateRoleAndNote appends a provenance note rather than overwriting
// existing notes, matching the behavior-inference note pattern in
// persistence_pipeline.py.
func (s *Store) UpdateRoleAndNote(ctx context.Context, personID uuid.UUID, role Role, note string, seenAt time.Time) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE persons
		SET role = $1, last_seen = $2, notes = COALESCE(notes || ' ', '') || $3
		WHERE id = $4`,
		role, seenAt, note, personID)
	if err != nil {
		return fmt.Errorf("update role and note: %w", err)
	}
	return nil
}

// CreateStrangerPerson inserts a new Person for a previously-unseen
// stranger bucket, with its body embedding seeded directly (no face).
func (s *Store) CreateStrangerPerson(ctx context.Context, name string, role Role, bodyVec []float32, seenAt time.Time) (*Person, error) {
	p := &Person{
		ID:                   uuid.New(),
		Name:                 name,
		Role:                 role,
		CurrentBodyEmbedding: bodyVec,
		FirstSeen:            seenAt,
		LastSeen:             seenAt,
	}
	now := seenAt
	vec := pgvector.NewVector(bodyVec)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO persons (id, name, role, current_body_embedding, body_update_time, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Role, vec, now, p.FirstSeen, p.LastSeen)
	if err != nil {
		return nil, fmt.Errorf("create stranger person: %w", err)
	}
	p.BodyUpdateTime = &now
	return p, nil
}

// SearchFaceMatches finds persons whose PersonFace embeddings exceed
// threshold, ordered by best match first.
type FaceMatch struct {
	PersonID uuid.UUID
	Score    float64
}

func (s *Store) SearchFaceMatches(ctx context.Context, embedding []float32, threshold float64) ([]FaceMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.Pool.Query(ctx, `
		SELECT person_id, 1 - (embedding <=> $1) AS score
		FROM person_faces
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY embedding <=> $1
		LIMIT 5`,
		vec, threshold)
	if err != nil {
		return nil, fmt.Errorf("search face matches: %w", err)
	}
	defer rows.Close()

	var out []FaceMatch
	for rows.Next() {
		var m FaceMatch
		if err := rows.Scan(&m.PersonID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan face match: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// BodyMatch is a candidate from the arbiter's body or soft-body pass.
type BodyMatch struct {
	PersonID uuid.UUID
	Score    float64
}

// SearchBodyMatches restricts candidates to role='owner' AND a fresh
// body_update_time, implementing the arbiter's tier-2 body path gate.
func (s *Store) SearchBodyMatches(ctx context.Context, embedding []float32, threshold float64, freshSince time.Time) ([]BodyMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.Pool.Query(ctx, `
		SELECT id, 1 - (current_body_embedding <=> $1) AS score
		FROM persons
		WHERE role = 'owner'
		  AND current_body_embedding IS NOT NULL
		  AND body_update_time >= $2
		  AND 1 - (current_body_embedding <=> $1) > $3
		ORDER BY current_body_embedding <=> $1
		LIMIT 5`,
		vec, freshSince, threshold)
	if err != nil {
		return nil, fmt.Errorf("search body matches: %w", err)
	}
	defer rows.Close()

	var out []BodyMatch
	for rows.Next() {
		var m BodyMatch
		if err := rows.Scan(&m.PersonID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan body match: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// SearchSoftBodyMatches is the tier-3 pass: no recency filter, scans all
// persons regardless of role, used only to surface a suspected_family
// verdict that never writes the cache.
func (s *Store) SearchSoftBodyMatches(ctx context.Context, embedding []float32, low, high float64) ([]BodyMatch, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := s.Pool.Query(ctx, `
		SELECT id, 1 - (current_body_embedding <=> $1) AS score
		FROM persons
		WHERE current_body_embedding IS NOT NULL
		  AND 1 - (current_body_embedding <=> $1) > $2
		  AND 1 - (current_body_embedding <=> $1) <= $3
		ORDER BY current_body_embedding <=> $1
		LIMIT 5`,
		vec, low, high)
	if err != nil {
		return nil, fmt.Errorf("search soft body matches: %w", err)
	}
	defer rows.Close()

	var out []BodyMatch
	for rows.Next() {
		var m BodyMatch
		if err := rows.Scan(&m.PersonID, &m.Score); err != nil {
			return nil, fmt.Errorf("scan soft body match: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// --- Person Faces ---

func (s *Store) UpsertPersonFace(ctx context.Context, personID uuid.UUID, embedding []float32, sourceImage string) error {
	vec := pgvector.NewVector(embedding)
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO person_faces (id, person_id, embedding, source_image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (person_id, source_image) DO NOTHING`,
		uuid.New(), personID, vec, sourceImage)
	if err != nil {
		return fmt.Errorf("upsert person face: %w", err)
	}
	return nil
}

func (s *Store) CountFaces(ctx context.Context, personID uuid.UUID) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM person_faces WHERE person_id = $1`, personID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count faces: %w", err)
	}
	return n, nil
}

// --- Events & Appearances ---

// InsertEventTx and InsertAppearanceTx take an explicit pgx.Tx so the
// persister can compose them within a single transaction per event.

func InsertEventTx(ctx context.Context, tx pgx.Tx, ev *StoredEvent) error {
	ev.CreatedAt = time.Now()
	_, err := tx.Exec(ctx, `
		INSERT INTO event_logs (id, video_filename, start_time, camera_location, llm_description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.VideoFilename, ev.StartTime, ev.CameraLocation, ev.LLMDescription, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func InsertAppearanceTx(ctx context.Context, tx pgx.Tx, ap *StoredAppearance) error {
	ap.CreatedAt = time.Now()
	vec := pgvector.NewVector(ap.BodyEmbedding)
	_, err := tx.Exec(ctx, `
		INSERT INTO event_appearances (id, event_id, person_id, match_method, body_embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ap.ID, ap.EventID, ap.PersonID, ap.MatchMethod, vec, ap.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appearance: %w", err)
	}
	return nil
}

// CreateStrangerPersonTx mirrors CreateStrangerPerson but participates in
// the persister's single transaction.
func CreateStrangerPersonTx(ctx context.Context, tx pgx.Tx, name string, role Role, bodyVec []float32, seenAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	vec := pgvector.NewVector(bodyVec)
	_, err := tx.Exec(ctx, `
		INSERT INTO persons (id, name, role, current_body_embedding, body_update_time, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		id, name, role, vec, seenAt, seenAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create stranger person: %w", err)
	}
	return id, nil
}

func UpdateRoleAndNoteTx(ctx context.Context, tx pgx.Tx, personID uuid.UUID, role Role, note string, seenAt time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE persons
		SET role = $1, last_seen = $2, notes = COALESCE(notes || ' ', '') || $3
		WHERE id = $4`,
		role, seenAt, note, personID)
	if err != nil {
		return fmt.Errorf("update role and note: %w", err)
	}
	return nil
}

func (s *Store) ListEventsForDate(ctx context.Context, date time.Time) ([]StoredEvent, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.Pool.Query(ctx, `
		SELECT id, video_filename, start_time, camera_location, llm_description, created_at
		FROM event_logs
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time ASC`,
		dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list events for date: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var e StoredEvent
		if err := rows.Scan(&e.ID, &e.VideoFilename, &e.StartTime, &e.CameraLocation, &e.LLMDescription, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

// DistinctEventDates lists every date (truncated to day) that has at least
// one StoredEvent, ascending, for the summarize-all batch command.
func (s *Store) DistinctEventDates(ctx context.Context) ([]time.Time, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT date_trunc('day', start_time) AS d FROM event_logs ORDER BY d ASC`)
	if err != nil {
		return nil, fmt.Errorf("distinct event dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		out = append(out, d)
	}
	return out, nil
}

// --- Daily Summaries ---

// UpsertDailySummary is idempotent on summary_date; a second call without
// force is expected to be skipped by the caller (internal/summarize), not
// here — this always writes, matching the Python original's unconditional
// UPSERT once the caller has decided to call it.
func (s *Store) UpsertDailySummary(ctx context.Context, date time.Time, text string) (*DailySummary, error) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	ds := &DailySummary{SummaryDate: d, SummaryText: text}
	err := s.Pool.QueryRow(ctx, `
		INSERT INTO daily_summaries (id, summary_date, summary_text, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (summary_date) DO UPDATE
		SET summary_text = EXCLUDED.summary_text, updated_at = now()
		RETURNING id, created_at, updated_at`,
		uuid.New(), d, text,
	).Scan(&ds.ID, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert daily summary: %w", err)
	}
	return ds, nil
}

func (s *Store) GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	ds := &DailySummary{}
	err := s.Pool.QueryRow(ctx, `
		SELECT id, summary_date, summary_text, created_at, updated_at
		FROM daily_summaries WHERE summary_date = $1`, d,
	).Scan(&ds.ID, &ds.SummaryDate, &ds.SummaryText, &ds.CreatedAt, &ds.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily summary: %w", err)
	}
	return ds, nil
}

// --- Retrieval joins (Phase I) ---

// AppearanceRow is the joined shape the retriever scans StoredEvent +
// StoredAppearance + Person over.
type AppearanceRow struct {
	Event       StoredEvent
	PersonID    uuid.UUID
	PersonName  string
	PersonRole  Role
	MatchMethod MatchMethod
}

type RetrieveFilter struct {
	From, To     *time.Time
	PersonName   *string
	ActionLike   *string // matched against llm_description via ILIKE
	Limit        int
}

func (s *Store) RetrieveAppearances(ctx context.Context, f RetrieveFilter) ([]AppearanceRow, error) {
	limit := f.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if f.From != nil {
		where += fmt.Sprintf(" AND e.start_time >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND e.start_time < $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}
	if f.PersonName != nil {
		where += fmt.Sprintf(" AND p.name = $%d", argIdx)
		args = append(args, *f.PersonName)
		argIdx++
	}
	if f.ActionLike != nil {
		where += fmt.Sprintf(" AND e.llm_description ILIKE $%d", argIdx)
		args = append(args, "%"+*f.ActionLike+"%")
		argIdx++
	}

	query := fmt.Sprintf(`
		SELECT e.id, e.video_filename, e.start_time, e.camera_location, e.llm_description, e.created_at,
		       p.id, p.name, p.role, a.match_method
		FROM event_appearances a
		JOIN event_logs e ON e.id = a.event_id
		JOIN persons p ON p.id = a.person_id
		%s
		ORDER BY e.start_time ASC
		LIMIT $%d`, where, argIdx)
	args = append(args, limit)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("retrieve appearances: %w", err)
	}
	defer rows.Close()

	var out []AppearanceRow
	for rows.Next() {
		var r AppearanceRow
		if err := rows.Scan(&r.Event.ID, &r.Event.VideoFilename, &r.Event.StartTime, &r.Event.CameraLocation,
			&r.Event.LLMDescription, &r.Event.CreatedAt, &r.PersonID, &r.PersonName, &r.PersonRole, &r.MatchMethod); err != nil {
			return nil, fmt.Errorf("scan appearance row: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}
