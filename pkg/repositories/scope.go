package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-content/pkg/database"
	"github.com/ekaya-inc/ekaya-content/pkg/models"
)

var errNoScope = errors.New("no database scope in context")

// connFromContext returns the scoped connection installed by
// database.WithOwnerContext or database.SystemScope.
func connFromContext(ctx context.Context) (*pgxpool.Conn, error) {
	scope, ok := database.GetScope(ctx)
	if !ok || scope == nil || scope.Conn == nil {
		return nil, errNoScope
	}
	return scope.Conn, nil
}

// nullableJSON maps an empty document to SQL NULL.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func platformsToStrings(in []models.Platform) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = string(p)
	}
	return out
}

func stringsToPlatforms(in []string) []models.Platform {
	out := make([]models.Platform, len(in))
	for i, s := range in {
		out[i] = models.Platform(s)
	}
	return out
}

func contentTypesToStrings(in []models.ContentType) []string {
	out := make([]string, len(in))
	for i, c := range in {
		out[i] = string(c)
	}
	return out
}

func stringsToContentTypes(in []string) []models.ContentType {
	out := make([]models.ContentType, len(in))
	for i, s := range in {
		out[i] = models.ContentType(s)
	}
	return out
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	fields := strings.Split(columns, ",")
	for i, f := range fields {
		fields[i] = alias + "." + strings.TrimSpace(f)
	}
	return strings.Join(fields, ", ")
}
