// purge-owner permanently removes every content project belonging to an owner,
// including soft-deleted ones. Generated content is removed by cascade.
//
// Usage: go run ./scripts/purge-owner [-dry-run=false] <owner-id>
//
// Database connection: Uses standard PG* environment variables
//
// Flags:
//
//	-dry-run   Show what would be deleted without actually deleting (default: true)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-content/pkg/config"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Show what would be deleted without actually deleting")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 || args[0] == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [-dry-run=false] <owner-id>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		fmt.Fprintf(os.Stderr, "  -dry-run  Show what would be deleted without deleting (default: true)\n")
		os.Exit(1)
	}
	ownerID := args[0]

	var dbCfg config.DatabaseConfig
	if err := cleanenv.ReadEnv(&dbCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read database settings: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := pgx.Connect(ctx, dbCfg.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	// Restrict the session to the owner's rows
	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_owner_id', $1, false)", ownerID); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set RLS context: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN - no changes will be made")
		fmt.Println("Run with -dry-run=false to actually delete projects")
		fmt.Println()
	}

	count, err := purgeOwner(ctx, conn, ownerID, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Purge failed: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Printf("\nTotal projects that would be deleted: %d\n", count)
	} else {
		fmt.Printf("\nTotal projects deleted: %d\n", count)
	}
}

func purgeOwner(ctx context.Context, conn *pgx.Conn, ownerID string, dryRun bool) (int, error) {
	if !dryRun {
		result, err := conn.Exec(ctx, `DELETE FROM content_projects WHERE owner_id = $1`, ownerID)
		if err != nil {
			return 0, fmt.Errorf("delete failed: %w", err)
		}
		return int(result.RowsAffected()), nil
	}

	rows, err := conn.Query(ctx, `
		SELECT p.id::text, p.title, p.status::text, p.deleted_at IS NOT NULL,
		       (SELECT count(*) FROM generated_content c WHERE c.project_id = p.id)
		FROM content_projects p
		WHERE p.owner_id = $1
		ORDER BY p.created_at`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var (
			id, title, status string
			deleted           bool
			contentRows       int64
		)
		if err := rows.Scan(&id, &title, &status, &deleted, &contentRows); err != nil {
			return 0, fmt.Errorf("scan failed: %w", err)
		}
		count++
		marker := ""
		if deleted {
			marker = " (soft-deleted)"
		}
		fmt.Printf("  %s %q [%s] %d content rows%s\n", id, truncate(title, 60), status, contentRows, marker)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("rows iteration failed: %w", err)
	}
	if count == 0 {
		fmt.Println("  No projects for this owner")
	}
	return count, nil
}

// truncate shortens a string to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
