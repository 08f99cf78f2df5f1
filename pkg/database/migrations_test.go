//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-content/pkg/database"
	"github.com/ekaya-inc/ekaya-content/pkg/testhelpers"
)

// Test_Migrations_Idempotent verifies a second run is a no-op.
func Test_Migrations_Idempotent(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)

	err := database.RunMigrations(testDB.DB.SQLDB(), zap.NewNop())
	require.NoError(t, err, "re-running migrations should succeed")
}

// Test_Migrations_CascadeDeletesContent verifies deleting a project removes its content rows.
func Test_Migrations_CascadeDeletesContent(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	projectID := uuid.New()
	_, err := testDB.DB.Pool.Exec(ctx, `
		INSERT INTO content_projects (id, owner_id, title, original_prompt, target_platforms, content_types)
		VALUES ($1, 'cascade-owner', 'Cascade', 'a prompt long enough', ARRAY['twitter'], ARRAY['text'])`,
		projectID)
	require.NoError(t, err)

	_, err = testDB.DB.Pool.Exec(ctx, `
		INSERT INTO generated_content (id, project_id, platform, content_type, model_used)
		VALUES ($1, $2, 'twitter', 'text', 'gpt-4.1-mini')`,
		uuid.New(), projectID)
	require.NoError(t, err)

	_, err = testDB.DB.Pool.Exec(ctx, `DELETE FROM content_projects WHERE id = $1`, projectID)
	require.NoError(t, err)

	var remaining int
	err = testDB.DB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM generated_content WHERE project_id = $1`, projectID).Scan(&remaining)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining, "content rows should be removed with their project")
}

// Test_Migrations_RejectsUnknownStatus verifies the status check constraint.
func Test_Migrations_RejectsUnknownStatus(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	_, err := testDB.DB.Pool.Exec(ctx, `
		INSERT INTO content_projects (id, owner_id, title, original_prompt, target_platforms, content_types, status)
		VALUES ($1, 'owner', 'Bad', 'a prompt long enough', ARRAY['twitter'], ARRAY['text'], 'published')`,
		uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check constraint")
}

// Test_Migrations_OwnerPolicies verifies row level security policies are installed.
func Test_Migrations_OwnerPolicies(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	for _, policy := range []string{"content_projects_owner_isolation", "generated_content_owner_isolation"} {
		var exists bool
		err := testDB.DB.Pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_policies WHERE policyname = $1)`, policy).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "policy %s should exist", policy)
	}
}
