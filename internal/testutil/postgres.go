// Package testutil поднимает окружение для интеграционных тестов с PostgreSQL.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/senyabanana/procurement-service/internal/db"
	"github.com/senyabanana/procurement-service/internal/router/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// ConnEnv - переменная окружения со строкой подключения к тестовой базе.
const ConnEnv = "TEST_POSTGRES_CONN"

// projectRoot ищет каталог с go.mod.
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func loadEnv() {
	if root := projectRoot(); root != "" {
		_ = godotenv.Load(filepath.Join(root, ".env"))
	}
}

// withSearchPath добавляет search_path в URL подключения.
func withSearchPath(conn, schema string) (string, error) {
	u, err := url.Parse(conn)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
		return "", fmt.Errorf("%s must be a postgres:// URL", ConnEnv)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// SetupPostgres создает для теста отдельную схему, накатывает миграции и
// возвращает пул, работающий в этой схеме. Схема удаляется после теста.
// Без TEST_POSTGRES_CONN тест пропускается.
func SetupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	loadEnv()
	conn := os.Getenv(ConnEnv)
	if conn == "" {
		t.Skipf("%s is not set", ConnEnv)
	}
	ctx := context.Background()

	schema := "test_rfx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	admin, err := pgxpool.New(ctx, conn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		admin.Close()
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		if _, err := admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		admin.Close()
	})

	scoped, err := withSearchPath(conn, schema)
	if err != nil {
		t.Fatal(err)
	}

	m, err := migrate.New("file://"+filepath.ToSlash(filepath.Join(projectRoot(), "migrations")), scoped)
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatalf("migrate up: %v", err)
	}
	if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
		t.Fatalf("migrate close: %v %v", srcErr, dbErr)
	}

	pool, err := db.InitDb(ctx, config.Config{PostgresConn: scoped, PostgresMaxConns: 8})
	if err != nil {
		t.Fatalf("InitDb: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// SeedEmployees добавляет пользователей в справочник employee.
func SeedEmployees(t *testing.T, pool *pgxpool.Pool, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := pool.Exec(context.Background(), `INSERT INTO employee (id, username) VALUES ($1, $1)`, id)
		if err != nil {
			t.Fatalf("seed employee %s: %v", id, err)
		}
	}
}
