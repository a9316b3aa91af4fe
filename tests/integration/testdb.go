// Package integration runs the pricing engine against a real PostgreSQL database.
// One testcontainers instance serves the whole package; the embedded migrations
// build its schema once and every test starts from truncated tables.
package integration

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/n3/backend/internal/infrastructure/logger"
	"github.com/n3/backend/internal/infrastructure/migration"
	"github.com/n3/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// pgContainer is the package-wide database, started by the first test that needs it
var pgContainer struct {
	sync.Mutex
	container testcontainers.Container
	dsn       string
}

// TestDB is one test's connection to the shared database
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
}

// NewSharedTestDB connects to the shared database with empty catalog, decision,
// queue and rate tables. The connection closes when the test ends.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()

	dsn := sharedDSN(t)
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: testGormLogger(t)})
	require.NoError(t, err, "connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(8)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	t.Cleanup(func() { _ = sqlDB.Close() })

	truncateAll(t, db)
	return &TestDB{DB: db, SqlDB: sqlDB}
}

func sharedDSN(t *testing.T) string {
	t.Helper()
	pgContainer.Lock()
	defer pgContainer.Unlock()
	if pgContainer.container != nil {
		return pgContainer.dsn
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("n3_test"),
		tcpostgres.WithUsername("n3"),
		tcpostgres.WithPassword("n3"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	migrate(t, dsn)
	pgContainer.container = container
	pgContainer.dsn = dsn
	return dsn
}

// migrate applies the embedded schema on a dedicated connection the migrator closes
func migrate(t *testing.T, dsn string) {
	t.Helper()
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	m, err := migration.NewFromFS(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
	status, err := m.Version()
	require.NoError(t, err)
	require.False(t, status.Dirty, "schema left dirty")
	require.NoError(t, m.Close())
}

func truncateAll(t *testing.T, db *gorm.DB) {
	t.Helper()
	var tables []string
	require.NoError(t, db.Raw(`SELECT quote_ident(tablename) FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`).Scan(&tables).Error)
	if len(tables) == 0 {
		return
	}
	require.NoError(t, db.Exec("TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE").Error)
}

// testGormLogger stays silent unless N3_TEST_SQL is set, which logs every statement
// with bound values to the test log.
func testGormLogger(t *testing.T) gormlogger.Interface {
	if os.Getenv("N3_TEST_SQL") == "" {
		return gormlogger.Discard
	}
	return logger.NewGormLogger(zaptest.NewLogger(t), gormlogger.Info,
		logger.WithIgnoreRecordNotFoundError(true),
		logger.WithFullSQL(true))
}

// CleanupSharedContainer terminates the shared container. TestMain calls it after m.Run.
func CleanupSharedContainer() {
	pgContainer.Lock()
	defer pgContainer.Unlock()
	if pgContainer.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = pgContainer.container.Terminate(ctx)
	pgContainer.container = nil
	pgContainer.dsn = ""
}
