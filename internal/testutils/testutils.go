package testutils

import (
	"os"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/brigada-mx/backend-sub000/internal/database"
)

var (
	testDB     *sqlx.DB
	dbInitOnce sync.Once
	dbInitErr  error
)

// truncateOrder lists every table, children first, so TRUNCATE CASCADE
// leaves an empty schema between tests.
const truncateAll = `TRUNCATE TABLE
	care_log_entries, shift_incidents, shifts, shift_schedule_days, shift_schedules,
	addresses, patients,
	donor_user_tokens, organization_user_tokens, client_user_tokens, nurse_user_tokens,
	donor_users, organization_users, donors, organizations,
	client_users, reservations, nurse_users, staff_users
	RESTART IDENTITY CASCADE`

// TestDB returns a shared connection to the test database, skipping the test
// when none is reachable. Each test starts and ends with empty tables.
func TestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dbInitOnce.Do(func() {
		cfg := database.Config{
			Host:     getEnv("TEST_DB_HOST", "localhost"),
			Port:     5433,
			User:     getEnv("TEST_DB_USER", "postgres"),
			Password: getEnv("TEST_DB_PASSWORD", "postgres"),
			DBName:   getEnv("TEST_DB_NAME", "backend_test"),
			SSLMode:  getEnv("TEST_DB_SSL_MODE", "disable"),
		}
		testDB, dbInitErr = database.Connect(cfg)
	})
	if dbInitErr != nil {
		t.Skipf("test database unavailable: %v", dbInitErr)
	}

	if _, err := testDB.Exec(truncateAll); err != nil {
		t.Fatalf("Failed to clean test database: %v", err)
	}
	t.Cleanup(func() {
		if _, err := testDB.Exec(truncateAll); err != nil {
			t.Errorf("Failed to clean up test data: %v", err)
		}
	})

	return testDB
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
