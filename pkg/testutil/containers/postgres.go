//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Manager shares one Postgres and one Redis container across suites in the
// test process. Ryuk reaps the containers after the process exits.
type Manager struct {
	pgOnce    sync.Once
	postgres  *PostgresContainer
	redisOnce sync.Once
	redis     *RedisContainer
}

var manager = &Manager{}

// GetManager returns the process-wide container manager.
func GetManager() *Manager { return manager }

// PostgresContainer wraps a testcontainers Postgres instance with the schema
// already applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// GetPostgres starts the shared Postgres container on first use.
func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	m.pgOnce.Do(func() { m.postgres = newPostgresContainer(t) })
	if m.postgres == nil {
		t.Fatal("postgres container failed to start")
	}
	return m.postgres
}

// GetRedis starts the shared Redis container on first use.
func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	t.Helper()
	m.redisOnce.Do(func() { m.redis = NewRedisContainer(t) })
	if m.redis == nil {
		t.Fatal("redis container failed to start")
	}
	return m.redis
}

func newPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("organlink"),
		tcpostgres.WithUsername("organlink"),
		tcpostgres.WithPassword("organlink"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables clears the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}

// schema mirrors the production DDL. Allocation requests deliberately carry no
// foreign keys to recipients or donors: owning hospitals may delete either
// independently, and the state machine re-checks existence at transition time.
const schema = `
CREATE TABLE IF NOT EXISTS hospitals (
	id      UUID PRIMARY KEY,
	name    TEXT NOT NULL,
	city    TEXT NOT NULL,
	region  TEXT NOT NULL,
	country TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipients (
	id                  UUID PRIMARY KEY,
	hospital_id         UUID NOT NULL,
	organ               TEXT NOT NULL,
	blood_type          TEXT NOT NULL,
	urgency             TEXT NOT NULL,
	age                 INT  NOT NULL,
	gender              TEXT NOT NULL,
	status              TEXT NOT NULL,
	matched_donor_id    UUID,
	matched_hospital_id UUID,
	registered_at       TIMESTAMPTZ NOT NULL,
	completed_at        TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS donors (
	id                   UUID PRIMARY KEY,
	hospital_id          UUID NOT NULL,
	blood_type           TEXT NOT NULL,
	organs               TEXT[] NOT NULL,
	age                  INT  NOT NULL,
	gender               TEXT NOT NULL,
	status               TEXT NOT NULL,
	matched_recipient_id UUID,
	registered_at        TIMESTAMPTZ NOT NULL,
	donated_at           TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS allocation_requests (
	id                 UUID PRIMARY KEY,
	origin_hospital_id UUID NOT NULL,
	target_hospital_id UUID NOT NULL,
	recipient_id       UUID NOT NULL,
	donor_id           UUID NOT NULL,
	status             TEXT NOT NULL,
	requester_notes    TEXT NOT NULL DEFAULT '',
	responder_notes    TEXT NOT NULL DEFAULT '',
	viewed             BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id          UUID PRIMARY KEY,
	hospital_id UUID NOT NULL,
	type        TEXT NOT NULL,
	title       TEXT NOT NULL,
	message     TEXT NOT NULL,
	related_id  UUID NOT NULL,
	read        BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS policies (
	id                  UUID PRIMARY KEY,
	title               TEXT NOT NULL,
	content             TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	votes_for           INT NOT NULL DEFAULT 0,
	votes_against       INT NOT NULL DEFAULT 0,
	paused_for_matching BOOLEAN NOT NULL DEFAULT FALSE,
	rules               JSONB NOT NULL DEFAULT '[]',
	proposed_by         UUID,
	created_at          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_donors_candidates ON donors (status, blood_type);
CREATE INDEX IF NOT EXISTS idx_requests_pair ON allocation_requests (recipient_id, donor_id, status);
CREATE INDEX IF NOT EXISTS idx_notifications_inbox ON notifications (hospital_id, created_at DESC);
`
