// Tests for AuthService (Register, Login and CreateGuest).
// Tests run against in-memory SQLite with real migrations.
package auth_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	domainaudit "github.com/matiasleandrokruk/shopwise/internal/domain/audit"
	domainauth "github.com/matiasleandrokruk/shopwise/internal/domain/auth"
	"github.com/matiasleandrokruk/shopwise/internal/infra/sqlite"
	"github.com/matiasleandrokruk/shopwise/pkg/auth"
)

// TestMain sets JWT_SECRET before any test runs.
func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "test-secret-key-32-chars-min!!!") //nolint:errcheck
	os.Exit(m.Run())
}

// ===== REGISTER TESTS =====

// TestAuthService_Register_Success verifies that registering creates a user and returns a JWT.
func TestAuthService_Register_Success(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	result, err := svc.Register(context.Background(), domainauth.RegisterInput{
		Email:       "alice@acme.com",
		Password:    "SecurePass123!",
		DisplayName: "Alice",
	})

	if err != nil {
		t.Fatalf("Register() error = %v; want nil", err)
	}

	if result.Token == "" {
		t.Error("Register() Token is empty; want JWT token")
	}

	if result.UserID == "" {
		t.Error("Register() UserID is empty; want non-empty ID")
	}

	if result.Role != auth.RoleUser {
		t.Errorf("Register() Role = %q; want %q", result.Role, auth.RoleUser)
	}
}

// TestAuthService_Register_TokenIsValid verifies that the returned token has valid claims.
func TestAuthService_Register_TokenIsValid(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	result, _ := svc.Register(context.Background(), domainauth.RegisterInput{
		Email:       "bob@acme.com",
		Password:    "SecurePass123!",
		DisplayName: "Bob",
	})

	claims, err := auth.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("Returned token is not a valid JWT: %v", err)
	}

	if claims.UserID != result.UserID {
		t.Errorf("JWT UserID = %q; want %q", claims.UserID, result.UserID)
	}

	if claims.Role != auth.RoleUser {
		t.Errorf("JWT Role = %q; want %q", claims.Role, auth.RoleUser)
	}
}

// TestAuthService_Register_UserPersistedInDB verifies the user is stored in the database.
func TestAuthService_Register_UserPersistedInDB(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	result, _ := svc.Register(context.Background(), domainauth.RegisterInput{
		Email:       "  Carol@Acme.com ",
		Password:    "SecurePass123!",
		DisplayName: "Carol",
	})

	var email, displayName, status, role string
	var passwordHash sql.NullString
	err := db.QueryRow(`
		SELECT email, display_name, status, role, password_hash
		FROM user_account WHERE id = ?
	`, result.UserID).Scan(&email, &displayName, &status, &role, &passwordHash)

	if err != nil {
		t.Fatalf("User not found in DB after Register: %v", err)
	}

	if email != "carol@acme.com" {
		t.Errorf("email = %q; want normalized %q", email, "carol@acme.com")
	}

	if displayName != "Carol" || status != "active" || role != "user" {
		t.Errorf("unexpected row: display_name=%q status=%q role=%q", displayName, status, role)
	}

	// Password should be stored as a bcrypt hash, not plaintext
	if !passwordHash.Valid || passwordHash.String == "" {
		t.Error("password_hash is NULL or empty; want bcrypt hash")
	}

	if passwordHash.String == "SecurePass123!" {
		t.Error("password_hash should not equal plaintext password")
	}
}

// TestAuthService_Register_DuplicateEmail verifies that duplicate email returns ErrEmailAlreadyExists.
func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	input := domainauth.RegisterInput{
		Email:       "dup@acme.com",
		Password:    "SecurePass123!",
		DisplayName: "Dup",
	}

	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("First Register() error = %v; want nil", err)
	}

	_, err := svc.Register(context.Background(), input)
	if !errors.Is(err, domainauth.ErrEmailAlreadyExists) {
		t.Errorf("Register() with duplicate email error = %v; want ErrEmailAlreadyExists", err)
	}
}

// TestAuthService_Register_InvalidInput verifies validation happens before any write.
func TestAuthService_Register_InvalidInput(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	cases := []domainauth.RegisterInput{
		{Email: "", Password: "SecurePass123!", DisplayName: "X"},
		{Email: "x@acme.com", Password: "SecurePass123!", DisplayName: " "},
		{Email: "x@acme.com", Password: "short", DisplayName: "X"},
	}
	for _, in := range cases {
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domainauth.ErrInvalidInput) {
			t.Errorf("Register(%+v) error = %v; want ErrInvalidInput", in, err)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM user_account`).Scan(&n); err != nil || n != 0 {
		t.Errorf("expected no rows, got %d (%v)", n, err)
	}
}

// ===== GUEST TESTS =====

// TestAuthService_CreateGuest verifies guest accounts have no credentials and a guest token.
func TestAuthService_CreateGuest(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	first, err := svc.CreateGuest(context.Background())
	if err != nil {
		t.Fatalf("CreateGuest() error = %v", err)
	}
	second, err := svc.CreateGuest(context.Background())
	if err != nil {
		t.Fatalf("second CreateGuest() error = %v", err)
	}
	if first.UserID == second.UserID {
		t.Error("each guest must get its own account")
	}

	claims, err := auth.ParseJWT(first.Token)
	if err != nil || claims.Role != auth.RoleGuest {
		t.Fatalf("unexpected guest claims: %+v %v", claims, err)
	}

	var email, hash sql.NullString
	var role string
	if err := db.QueryRow(`SELECT email, password_hash, role FROM user_account WHERE id = ?`, first.UserID).Scan(&email, &hash, &role); err != nil {
		t.Fatalf("guest row: %v", err)
	}
	if email.Valid || hash.Valid || role != "guest" {
		t.Errorf("unexpected guest row: email=%v hash=%v role=%q", email, hash, role)
	}
}

// ===== LOGIN TESTS =====

// TestAuthService_Login_Success verifies successful login returns JWT.
func TestAuthService_Login_Success(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	regResult, _ := svc.Register(context.Background(), domainauth.RegisterInput{
		Email:       "eve@acme.com",
		Password:    "SecurePass123!",
		DisplayName: "Eve",
	})

	loginResult, err := svc.Login(context.Background(), domainauth.LoginInput{
		Email:    "EVE@acme.com",
		Password: "SecurePass123!",
	})

	if err != nil {
		t.Fatalf("Login() error = %v; want nil", err)
	}

	if loginResult.Token == "" {
		t.Error("Login() Token is empty; want JWT token")
	}

	if loginResult.UserID != regResult.UserID {
		t.Errorf("Login() UserID = %q; want %q", loginResult.UserID, regResult.UserID)
	}
}

// TestAuthService_Login_CarriesStoredRole verifies an admin gets an admin token.
func TestAuthService_Login_CarriesStoredRole(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	reg, _ := svc.Register(context.Background(), domainauth.RegisterInput{
		Email: "root@acme.com", Password: "SecurePass123!", DisplayName: "Root",
	})
	if _, err := db.Exec(`UPDATE user_account SET role = 'admin' WHERE id = ?`, reg.UserID); err != nil {
		t.Fatalf("promote: %v", err)
	}

	result, err := svc.Login(context.Background(), domainauth.LoginInput{
		Email: "root@acme.com", Password: "SecurePass123!",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := auth.ParseJWT(result.Token)
	if err != nil {
		t.Fatalf("Login() token is not valid JWT: %v", err)
	}

	if claims.Role != auth.RoleAdmin || result.Role != auth.RoleAdmin {
		t.Errorf("Login() role = %q / claims %q; want admin", result.Role, claims.Role)
	}
}

// TestAuthService_Login_WrongPassword verifies that wrong password returns error.
func TestAuthService_Login_WrongPassword(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	svc.Register(context.Background(), domainauth.RegisterInput{ //nolint:errcheck
		Email: "grace@acme.com", Password: "SecurePass123!", DisplayName: "Grace",
	})

	_, err := svc.Login(context.Background(), domainauth.LoginInput{
		Email:    "grace@acme.com",
		Password: "WrongPassword!",
	})

	if !errors.Is(err, domainauth.ErrInvalidCredentials) {
		t.Errorf("Login() with wrong password error = %v; want ErrInvalidCredentials", err)
	}
}

// TestAuthService_Login_ErrorMessageGeneric verifies error message doesn't reveal whether email exists.
func TestAuthService_Login_ErrorMessageGeneric(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthService(db)

	svc.Register(context.Background(), domainauth.RegisterInput{ //nolint:errcheck
		Email: "hank@acme.com", Password: "SecurePass123!", DisplayName: "Hank",
	})

	_, errWrongPw := svc.Login(context.Background(), domainauth.LoginInput{
		Email: "hank@acme.com", Password: "WrongPassword!",
	})

	_, errNoUser := svc.Login(context.Background(), domainauth.LoginInput{
		Email: "nosuchuser@acme.com", Password: "SecurePass123!",
	})

	if errWrongPw == nil || errNoUser == nil {
		t.Fatal("Both login attempts should fail")
	}

	if errWrongPw.Error() != errNoUser.Error() {
		t.Errorf("Error messages should be identical for security: got %q vs %q",
			errWrongPw.Error(), errNoUser.Error())
	}
}

// ===== AUDIT TESTS =====

type recordingAudit struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingAudit) LogWithDetails(
	_ context.Context,
	actorID string,
	_ domainaudit.ActorType,
	action string,
	_ *string,
	_ *string,
	_ *domainaudit.EventDetails,
	outcome domainaudit.Outcome,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, action+":"+string(outcome)+":"+actorID)
	return nil
}

// TestAuthService_AuditTrail verifies success and failure are both recorded.
func TestAuthService_AuditTrail(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	rec := &recordingAudit{}
	svc := domainauth.NewAuthServiceWithAudit(db, rec)

	reg, err := svc.Register(context.Background(), domainauth.RegisterInput{
		Email: "ivy@acme.com", Password: "SecurePass123!", DisplayName: "Ivy",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, _ = svc.Login(context.Background(), domainauth.LoginInput{Email: "ivy@acme.com", Password: "nope-nope"})
	_, _ = svc.Login(context.Background(), domainauth.LoginInput{Email: "ghost@acme.com", Password: "nope-nope"})

	want := []string{
		"register:success:" + reg.UserID,
		"login:error:" + reg.UserID,
		"login:error:unknown",
	}
	if len(rec.events) != len(want) {
		t.Fatalf("events = %v; want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("event %d = %q; want %q", i, rec.events[i], want[i])
		}
	}
}

// TestAuthService_AuditService_Integration wires the real audit service.
func TestAuthService_AuditService_Integration(t *testing.T) {
	t.Parallel()

	db := mustOpenDB(t)
	svc := domainauth.NewAuthServiceWithAudit(db, domainaudit.NewAuditService(db))

	guest, err := svc.CreateGuest(context.Background())
	if err != nil {
		t.Fatalf("CreateGuest() error = %v", err)
	}

	events, err := domainaudit.NewAuditService(db).ListByActor(context.Background(), guest.UserID, 10)
	if err != nil {
		t.Fatalf("ListByActor() error = %v", err)
	}
	if len(events) != 1 || events[0].Action != "guest_session" || events[0].Outcome != domainaudit.OutcomeSuccess {
		t.Errorf("unexpected audit events: %+v", events)
	}
	if time.Since(events[0].CreatedAt) > time.Minute {
		t.Errorf("unexpected created_at %v", events[0].CreatedAt)
	}
}

// ===== TEST HELPERS =====

// mustOpenDB opens an in-memory SQLite DB with all migrations applied.
func mustOpenDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.NewDB(":memory:")
	if err != nil {
		t.Fatalf("sqlite.NewDB error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := sqlite.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("MigrateUp error = %v", err)
	}

	return db
}
