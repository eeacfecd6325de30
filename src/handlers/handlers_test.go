package handlers

import (
	"context"
	"database/sql"
	"strconv"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/birizinit/meuacessor/src/broker"
	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/reporting"
	"github.com/birizinit/meuacessor/src/security"
	"github.com/birizinit/meuacessor/src/services"
	"github.com/birizinit/meuacessor/src/storage"

	_ "modernc.org/sqlite"
)

const testSchema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    nome TEXT NOT NULL,
    sobrenome TEXT NOT NULL,
    cpf TEXT NOT NULL UNIQUE,
    telefone TEXT NOT NULL DEFAULT '',
    nascimento TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL DEFAULT '',
    auth_provider TEXT NOT NULL DEFAULT 'local',
    api_token TEXT NOT NULL DEFAULT '',
    profile_image TEXT NOT NULL DEFAULT '',
    preferences TEXT NOT NULL DEFAULT '',
    login_count INTEGER NOT NULL DEFAULT 0,
    last_login_at TIMESTAMP,
    last_login_ip TEXT NOT NULL DEFAULT '',
    is_email_verified BOOLEAN NOT NULL DEFAULT 0,
    email_verification_token TEXT,
    email_verification_token_expires_at TIMESTAMP,
    password_reset_token TEXT,
    password_reset_token_expires_at TIMESTAMP,
    mfa_secret TEXT,
    mfa_enabled BOOLEAN NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    token TEXT NOT NULL,
    refresh_token TEXT NOT NULL UNIQUE,
    user_agent TEXT NOT NULL DEFAULT '',
    client_ip TEXT NOT NULL DEFAULT '',
    is_blocked BOOLEAN NOT NULL DEFAULT 0,
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE login_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    login_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE notifications (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    unread BOOLEAN NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// fakeEmailService records outgoing mail instead of sending it.
type fakeEmailService struct {
	verificationTokens []string
	resetTokens        []string
	lastRecipient      string
}

func (f *fakeEmailService) SendVerificationEmail(toEmail, name, token string) error {
	f.verificationTokens = append(f.verificationTokens, token)
	f.lastRecipient = toEmail
	return nil
}

func (f *fakeEmailService) SendPasswordResetEmail(toEmail, name, token string) error {
	f.resetTokens = append(f.resetTokens, token)
	f.lastRecipient = toEmail
	return nil
}

// fakeReportService returns canned data and lets tests inject errors.
type fakeReportService struct {
	err              string
	summary          *reporting.Summary
	symbols          []reporting.RankedSymbolStat
	wallets          []broker.Wallet
	csv              string
	invalidatedUsers []int64
}

func (f *fakeReportService) fail() error {
	switch f.err {
	case "token":
		return services.ErrBrokerTokenMissing
	case "broker":
		return &broker.APIError{StatusCode: 500, Message: "upstream down"}
	}
	return nil
}

func (f *fakeReportService) Summary(ctx context.Context, userID int64, period reporting.Period, reference time.Time) (*reporting.Summary, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	s := reporting.Aggregate(period, reporting.Resolve(period, reference), nil)
	return &s, nil
}

func (f *fakeReportService) MonthSummary(ctx context.Context, userID int64, monthName string, year int) (*reporting.Summary, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	window, err := reporting.MonthRange(monthName, year, time.UTC)
	if err != nil {
		return nil, err
	}
	s := reporting.Aggregate(reporting.PeriodMonth, window, nil)
	return &s, nil
}

func (f *fakeReportService) TopSymbols(ctx context.Context, userID int64, period reporting.Period, reference time.Time) ([]reporting.RankedSymbolStat, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.symbols, nil
}

func (f *fakeReportService) Operations(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter, page, pageSize int) (*services.OperationsPage, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return &services.OperationsPage{Operations: []reporting.Operation{}, Page: page, PageSize: pageSize}, nil
}

func (f *fakeReportService) ExportCSV(ctx context.Context, userID int64, window reporting.DateRange, filter reporting.ResultFilter) (string, error) {
	if err := f.fail(); err != nil {
		return "", err
	}
	return f.csv, nil
}

func (f *fakeReportService) Wallets(ctx context.Context, userID int64) ([]broker.Wallet, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.wallets, nil
}

func (f *fakeReportService) InvalidateUser(userID int64) {
	f.invalidatedUsers = append(f.invalidatedUsers, userID)
}

type testEnv struct {
	handler *UserHandler
	email   *fakeEmailService
	reports *fakeReportService
}

// newTestEnv wires the handler against an in-memory database and fake
// downstream services. The global DB and config are swapped for the test
// and restored on cleanup.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("applying test schema: %v", err)
	}

	prevDB := database.DB
	prevCfg := config.Cfg
	database.DB = db
	config.Cfg = &config.AppConfig{
		JWTSecret:                "test-secret-key-at-least-32-bytes-long!",
		CSRFAuthKey:              []byte("csrf-test-key-32-bytes-long-....."),
		OAuthStateString:         "test-state",
		AccessTokenExpiry:        time.Hour,
		RefreshTokenExpiry:       24 * time.Hour,
		VerificationTokenExpiry:  24 * time.Hour,
		PasswordResetTokenExpiry: time.Hour,
		MaxUploadSizeBytes:       1 << 20,
		FrontendBaseURL:          "http://localhost:3000",
		AdminEmails:              []string{"admin@example.com"},
	}
	t.Cleanup(func() {
		database.DB = prevDB
		config.Cfg = prevCfg
		db.Close()
	})

	store, err := storage.NewLocalDisk(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("creating test storage: %v", err)
	}

	email := &fakeEmailService{}
	reports := &fakeReportService{}
	handler := NewUserHandler(
		security.NewAuthService(config.Cfg.JWTSecret),
		email,
		services.NewUploadService(db, store),
		reports,
		services.NewMFAService(),
		cache.New(time.Minute, time.Minute),
	)

	return &testEnv{handler: handler, email: email, reports: reports}
}

// createVerifiedUser inserts a ready-to-login user and returns it.
func (e *testEnv) createVerifiedUser(t *testing.T, email, password string) *model.User {
	t.Helper()
	user := &model.User{
		Email:           email,
		Nome:            "Maria",
		Sobrenome:       "Silva",
		CPF:             "52998224725",
		Telefone:        "+5511999990000",
		Nascimento:      "02/01/1990",
		AuthProvider:    "local",
		IsEmailVerified: true,
	}
	if err := user.HashPassword(password); err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if err := user.CreateUser(database.DB); err != nil {
		t.Fatalf("creating test user: %v", err)
	}
	return user
}

// login issues a session for the user and returns the access token.
func (e *testEnv) login(t *testing.T, userID int64) string {
	t.Helper()
	accessToken, err := e.handler.authService.GenerateToken(strconv.FormatInt(userID, 10))
	if err != nil {
		t.Fatalf("generating token: %v", err)
	}
	refreshToken, err := e.handler.authService.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("generating refresh token: %v", err)
	}
	session := &model.Session{
		UserID:       userID,
		Token:        accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := model.CreateSession(database.DB, session); err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return accessToken
}
