// Tests for the migration system.
package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/matiasleandrokruk/shopwise/internal/infra/sqlite"
)

func mustMigrate(t *testing.T, db *sql.DB) []string {
	t.Helper()
	applied, err := sqlite.MigrateUp(context.Background(), db)
	if err != nil {
		t.Fatalf("MigrateUp() error = %v; want nil", err)
	}
	return applied
}

// TestMigrate_RunsAllMigrations verifies that MigrateUp applies all pending migrations.
func TestMigrate_RunsAllMigrations(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	applied := mustMigrate(t, db)

	if len(applied) != 2 {
		t.Fatalf("applied = %v; want 2 migrations", applied)
	}
	if applied[0] != "001_identity_audit.up.sql" || applied[1] != "002_wishlists.up.sql" {
		t.Errorf("applied out of order: %v", applied)
	}
}

// TestMigrate_Idempotent verifies that running MigrateUp twice does not fail
// and applies nothing the second time.
func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	if again := mustMigrate(t, db); len(again) != 0 {
		t.Fatalf("second run applied %v; want nothing", again)
	}
}

// TestMigrate_TablesCreated verifies every table exists after migration.
func TestMigrate_TablesCreated(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	for _, table := range []string{"user_account", "audit_event", "wishlist", "message", "product"} {
		assertTableExists(t, db, table)
	}
}

// TestMigrate_ForeignKeyConstraintEnforced verifies that FK constraints are active.
// A wishlist owned by a non-existent user must be rejected.
func TestMigrate_ForeignKeyConstraintEnforced(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	_, err := db.Exec(`
		INSERT INTO wishlist (id, name, kind, created_by, created_at, updated_at)
		VALUES ('wl-1', 'Shoes', 'product', 'nobody', datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Error("INSERT with non-existent created_by succeeded; want FK constraint error")
	}
}

// TestMigrate_UserEmailUnique verifies the UNIQUE constraint on user_account.email
// while allowing any number of guests without an email.
func TestMigrate_UserEmailUnique(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	insertUser := `
		INSERT INTO user_account (id, email, display_name, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'), datetime('now'))`

	if _, err := db.Exec(insertUser, "user-1", "alice@example.com", "Alice", "user"); err != nil {
		t.Fatalf("first user insert error = %v", err)
	}
	if _, err := db.Exec(insertUser, "user-2", "alice@example.com", "Alice 2", "user"); err == nil {
		t.Error("duplicate email INSERT succeeded; want UNIQUE constraint error")
	}

	for _, id := range []string{"guest-1", "guest-2"} {
		if _, err := db.Exec(insertUser, id, nil, "Guest", "guest"); err != nil {
			t.Fatalf("guest insert %s error = %v", id, err)
		}
	}
}

// TestMigrate_RoleChecked verifies the role CHECK constraint.
func TestMigrate_RoleChecked(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	_, err := db.Exec(`
		INSERT INTO user_account (id, display_name, role, created_at, updated_at)
		VALUES ('u-1', 'Root', 'root', datetime('now'), datetime('now'))
	`)
	if err == nil {
		t.Error("INSERT with unknown role succeeded; want CHECK constraint error")
	}
}

// TestMigrate_ProductUniquePerWishlist verifies UNIQUE(wishlist_id, name) on product.
func TestMigrate_ProductUniquePerWishlist(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	stmts := []string{
		`INSERT INTO user_account (id, display_name, role, created_at, updated_at) VALUES ('u-1', 'A', 'user', datetime('now'), datetime('now'))`,
		`INSERT INTO wishlist (id, name, kind, created_by, created_at, updated_at) VALUES ('wl-1', 'Shoes', 'product', 'u-1', datetime('now'), datetime('now'))`,
		`INSERT INTO product (id, wishlist_id, name, created_at) VALUES ('p-1', 'wl-1', 'Trail runner', datetime('now'))`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}

	_, err := db.Exec(`INSERT INTO product (id, wishlist_id, name, created_at) VALUES ('p-2', 'wl-1', 'Trail runner', datetime('now'))`)
	if err == nil {
		t.Error("duplicate product name in same wishlist succeeded; want UNIQUE constraint error")
	}
}

// TestMigrate_Version returns the current applied migration version.
func TestMigrate_Version(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	mustMigrate(t, db)

	version, err := sqlite.MigrationVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v; want nil", err)
	}
	if version != 2 {
		t.Errorf("MigrationVersion() = %d; want 2 after MigrateUp", version)
	}
}

// TestMigrationVersion_NoMigrations verifies version is 0 on fresh DB.
func TestMigrationVersion_NoMigrations(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)

	version, err := sqlite.MigrationVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("MigrationVersion() = %d; want 0 on fresh DB", version)
	}
}

// TestMigrate_InMemory verifies migrations apply to the single-connection in-memory DB.
func TestMigrate_InMemory(t *testing.T) {
	t.Parallel()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mustMigrate(t, db)
	assertTableExists(t, db, "wishlist")
}

// assertTableExists fails the test if the given table doesn't exist in the DB.
func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&name)

	if err == sql.ErrNoRows {
		t.Errorf("table %q does not exist", tableName)
		return
	}
	if err != nil {
		t.Fatalf("query sqlite_master error = %v", err)
	}
}
