package helper

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDatabase = "regraph_test"
	testUsername = "regraph"
	testPassword = "regraph"
)

// MustStartPostgresContainer starts a pgvector-enabled PostgreSQL container
// for tests and returns its terminate function and mapped port. Called once
// per test package from TestMain.
func MustStartPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase(testDatabase),
		postgres.WithUsername(testUsername),
		postgres.WithPassword(testPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", NewError("start postgres container", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", NewError("get mapped port", err)
	}

	return container.Terminate, mappedPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the database configuration at the test
// container for the duration of the test.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("REGRAPH_DB_HOST", "localhost")
	t.Setenv("REGRAPH_DB_PORT", port)
	t.Setenv("REGRAPH_DB_DATABASE", testDatabase)
	t.Setenv("REGRAPH_DB_USERNAME", testUsername)
	t.Setenv("REGRAPH_DB_PASSWORD", testPassword)
	t.Setenv("REGRAPH_DB_SCHEMA", "public")
}

// NewTestDatabase creates a database handle with a silent logger
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDatabase(testDatabase, config, logger)
}
