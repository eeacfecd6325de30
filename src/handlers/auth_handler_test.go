package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/model"
)

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	body := `{
		"email": "maria@example.com",
		"nome": "Maria",
		"sobrenome": "Silva",
		"cpf": "529.982.247-25",
		"telefone": "+5511999990000",
		"nascimento": "02/01/1990",
		"password": "segredo123"
	}`
	rec := httptest.NewRecorder()
	env.handler.RegisterUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: got status %d, body %s", rec.Code, rec.Body.String())
	}
	if len(env.email.verificationTokens) != 1 {
		t.Fatalf("expected one verification email, got %d", len(env.email.verificationTokens))
	}

	// Login before verification is refused with the dedicated code and
	// triggers a fresh verification email.
	loginBody := `{"email": "maria@example.com", "password": "segredo123"}`
	rec = httptest.NewRecorder()
	env.handler.LoginUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(loginBody)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unverified login: got status %d", rec.Code)
	}
	var forbidden map[string]string
	json.NewDecoder(rec.Body).Decode(&forbidden)
	if forbidden["code"] != "EMAIL_NOT_VERIFIED" {
		t.Errorf("unverified login: got code %q", forbidden["code"])
	}
	if len(env.email.verificationTokens) != 2 {
		t.Fatalf("expected verification resend, got %d emails", len(env.email.verificationTokens))
	}

	// Verify with the resent token, then log in.
	token := env.email.verificationTokens[1]
	rec = httptest.NewRecorder()
	env.handler.VerifyEmailHandler(rec, httptest.NewRequest(http.MethodGet, "/api/auth/verify-email?token="+token, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("verify email: got status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	env.handler.LoginUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(loginBody)))
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d, body %s", rec.Code, rec.Body.String())
	}
	var loginResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		User         struct {
			Email       string `json:"email"`
			HasAPIToken bool   `json:"has_api_token"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&loginResp); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}
	if loginResp.AccessToken == "" || loginResp.RefreshToken == "" {
		t.Fatal("login response missing tokens")
	}
	if loginResp.User.Email != "maria@example.com" {
		t.Errorf("login user email: got %q", loginResp.User.Email)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createVerifiedUser(t, "maria@example.com", "segredo123")

	body := `{
		"email": "maria@example.com",
		"nome": "Outra",
		"sobrenome": "Pessoa",
		"cpf": "11144477735",
		"nascimento": "10/10/1985",
		"password": "outrasenha"
	}`
	rec := httptest.NewRecorder()
	env.handler.RegisterUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate email: got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterRejectsInvalidCPF(t *testing.T) {
	env := newTestEnv(t)

	body := `{
		"email": "joao@example.com",
		"nome": "João",
		"sobrenome": "Souza",
		"cpf": "12345678900",
		"nascimento": "05/05/1992",
		"password": "segredo123"
	}`
	rec := httptest.NewRecorder()
	env.handler.RegisterUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid cpf: got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestLoginWrongPasswordIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.createVerifiedUser(t, "maria@example.com", "segredo123")

	for _, body := range []string{
		`{"email": "maria@example.com", "password": "errada"}`,
		`{"email": "naoexiste@example.com", "password": "segredo123"}`,
	} {
		rec := httptest.NewRecorder()
		env.handler.LoginUserHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body)))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d for body %s", rec.Code, body)
		}
		var resp map[string]string
		json.NewDecoder(rec.Body).Decode(&resp)
		if resp["error"] != "Email ou senha inválidos" {
			t.Errorf("expected generic error, got %q", resp["error"])
		}
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email": "maria@example.com", "password": "segredo123"}`))
	rec := httptest.NewRecorder()
	env.handler.LoginUserHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got status %d", rec.Code)
	}
	var loginResp struct {
		RefreshToken string `json:"refresh_token"`
	}
	json.NewDecoder(rec.Body).Decode(&loginResp)

	refreshBody := `{"refresh_token": "` + loginResp.RefreshToken + `"}`
	rec = httptest.NewRecorder()
	env.handler.RefreshTokenHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(refreshBody)))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: got status %d, body %s", rec.Code, rec.Body.String())
	}

	// The rotated-out refresh token must be dead.
	rec = httptest.NewRecorder()
	env.handler.RefreshTokenHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/refresh", strings.NewReader(refreshBody)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: got status %d", rec.Code)
	}

	if _, err := model.GetSessionByRefreshToken(database.DB, loginResp.RefreshToken); err == nil {
		t.Errorf("old session still present for user %d", user.ID)
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")
	token := env.login(t, user.ID)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.handler.LogoutUserHandler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: got status %d", rec.Code)
	}

	if _, err := model.GetSessionByToken(database.DB, token); err == nil {
		t.Error("session survived logout")
	}
}

func TestAuthMiddlewareRejectsUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")

	// Valid JWT without a session row. Happens after logout or session purge.
	orphanToken, err := env.handler.authService.GenerateToken("1")
	if err != nil {
		t.Fatal(err)
	}

	protected := env.handler.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+orphanToken)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("orphan token: got status %d", rec.Code)
	}

	// With a real session the request goes through.
	sessionToken := env.login(t, user.ID)
	req = httptest.NewRequest(http.MethodGet, "/api/user/profile", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid session: got status %d", rec.Code)
	}
}

func TestAdminMiddleware(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createVerifiedUser(t, "admin@example.com", "segredo123")

	regular := &model.User{
		Email:           "user@example.com",
		Nome:            "User",
		Sobrenome:       "Comum",
		CPF:             "11144477735",
		AuthProvider:    "local",
		IsEmailVerified: true,
	}
	if err := regular.CreateUser(database.DB); err != nil {
		t.Fatal(err)
	}

	chain := env.handler.AuthMiddleware(env.handler.AdminMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	adminToken := env.login(t, admin.ID)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin access: got status %d", rec.Code)
	}

	userToken := env.login(t, regular.ID)
	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+userToken)
	rec = httptest.NewRecorder()
	chain.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin access: got status %d", rec.Code)
	}
}
