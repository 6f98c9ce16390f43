package testutil

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dvir/roombill-client/internal/config"
	"github.com/dvir/roombill-client/internal/store/gormkv"
	"github.com/dvir/roombill-client/internal/stubapi"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestConfig returns a config with short durations so timing-sensitive tests
// run fast.
func TestConfig() *config.Config {
	cfg := config.Default()
	cfg.InactivityTimeout = 5 * time.Minute
	cfg.ChatPollInterval = 20 * time.Millisecond
	cfg.ReadTrackInterval = 20 * time.Millisecond
	return cfg
}

// StartStubServer runs the in-memory backend on an httptest listener.
func StartStubServer(t *testing.T) (*stubapi.Server, *httptest.Server) {
	t.Helper()
	server := stubapi.New("test-secret", Logger())
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return server, ts
}

// TestDB manages a testcontainers PostgreSQL instance for store tests.
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_roombill"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&gormkv.Record{}); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return &TestDB{Container: container, DB: db, DSN: dsn}
}

// Truncate clears the key-value table between tests.
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()
	if err := tdb.DB.Exec("TRUNCATE TABLE records").Error; err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
}
