package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsArePaired(t *testing.T) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, n := range names {
		base := strings.TrimPrefix(n, "migrations/")
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			ups[strings.TrimSuffix(base, ".up.sql")] = true
		case strings.HasSuffix(base, ".down.sql"):
			downs[strings.TrimSuffix(base, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %s", base)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestInitialSchema(t *testing.T) {
	b, err := fs.ReadFile(migrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	sql := string(b)

	for _, table := range []string{"users", "user_statistics", "todos", "todo_history"} {
		assert.Contains(t, sql, "create table if not exists "+table+" (")
	}
	// unique violations are told apart by constraint name
	assert.Contains(t, sql, "users_username_key")
	assert.Contains(t, sql, "users_email_key")
	assert.Contains(t, sql, "on delete cascade")
}

func TestMigrateRejectsBadDSN(t *testing.T) {
	err := Migrate("postgres://%zz", true, nil)
	assert.Error(t, err)
}
