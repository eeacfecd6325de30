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

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")
	env.login(t, user.ID)

	rec := httptest.NewRecorder()
	env.handler.RequestPasswordResetHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/request-password-reset",
		strings.NewReader(`{"email": "maria@example.com"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("request reset: got status %d", rec.Code)
	}
	if len(env.email.resetTokens) != 1 {
		t.Fatalf("expected one reset email, got %d", len(env.email.resetTokens))
	}

	resetBody := `{"token": "` + env.email.resetTokens[0] + `", "password": "novasenha1", "confirm_password": "novasenha1"}`
	rec = httptest.NewRecorder()
	env.handler.ResetPasswordHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/reset-password", strings.NewReader(resetBody)))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: got status %d, body %s", rec.Code, rec.Body.String())
	}

	updated, err := model.GetUserByID(database.DB, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if err := updated.CheckPassword("novasenha1"); err != nil {
		t.Error("new password does not verify after reset")
	}

	// Sessions opened with the old password are gone.
	var sessions int
	database.DB.QueryRow("SELECT COUNT(*) FROM sessions WHERE user_id = ?", user.ID).Scan(&sessions)
	if sessions != 0 {
		t.Errorf("sessions remaining after reset: %d", sessions)
	}

	// A used token cannot reset again.
	rec = httptest.NewRecorder()
	env.handler.ResetPasswordHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/reset-password", strings.NewReader(resetBody)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("reused token: got status %d", rec.Code)
	}
}

func TestPasswordResetDoesNotRevealAccounts(t *testing.T) {
	env := newTestEnv(t)
	env.createVerifiedUser(t, "maria@example.com", "segredo123")

	var messages []string
	for _, email := range []string{"maria@example.com", "desconhecido@example.com"} {
		rec := httptest.NewRecorder()
		env.handler.RequestPasswordResetHandler(rec, httptest.NewRequest(http.MethodPost, "/api/auth/request-password-reset",
			strings.NewReader(`{"email": "`+email+`"}`)))
		if rec.Code != http.StatusOK {
			t.Fatalf("got status %d for %s", rec.Code, email)
		}
		var resp map[string]string
		json.NewDecoder(rec.Body).Decode(&resp)
		messages = append(messages, resp["message"])
	}
	if messages[0] != messages[1] {
		t.Errorf("responses differ between known and unknown email: %q vs %q", messages[0], messages[1])
	}
	if len(env.email.resetTokens) != 1 {
		t.Errorf("expected exactly one reset email, got %d", len(env.email.resetTokens))
	}
}
