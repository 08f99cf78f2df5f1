//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestTestDB_MigrationsApplied(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	for _, table := range []string{"content_projects", "generated_content"} {
		var exists bool
		err := testDB.DB.Pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public' AND table_name = $1
			)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("failed to check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("expected table %s to exist after migrations", table)
		}
	}
}

func TestTestDB_ConnectsWithoutRLSBypass(t *testing.T) {
	testDB := GetTestDB(t)

	var bypass bool
	err := testDB.DB.Pool.QueryRow(context.Background(),
		`SELECT rolsuper OR rolbypassrls FROM pg_roles WHERE rolname = current_user`).Scan(&bypass)
	if err != nil {
		t.Fatalf("failed to read role attributes: %v", err)
	}
	if bypass {
		t.Error("expected the test connection to be subject to row level security")
	}
}

func TestTestRedis_Ping(t *testing.T) {
	testRedis := GetTestRedis(t)

	if err := testRedis.Client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("expected redis ping to succeed: %v", err)
	}
}
