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

func TestUploadProfileImageRejectsFakePNG(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")

	var body strings.Builder
	boundary := "testboundary"
	body.WriteString("--" + boundary + "\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"image\"; filename=\"avatar.png\"\r\n")
	body.WriteString("Content-Type: image/png\r\n\r\n")
	body.WriteString("this is not a png")
	body.WriteString("\r\n--" + boundary + "--\r\n")

	req := authedJSONRequest(http.MethodPost, "/api/user/profile-image", body.String(), user.ID)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	env.handler.HandleUploadProfileImage(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("fake png: got status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUploadProfileImageAcceptsRealPNG(t *testing.T) {
	env := newTestEnv(t)
	user := env.createVerifiedUser(t, "maria@example.com", "segredo123")

	pngBytes := string([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 13})

	var body strings.Builder
	boundary := "testboundary"
	body.WriteString("--" + boundary + "\r\n")
	body.WriteString("Content-Disposition: form-data; name=\"image\"; filename=\"avatar.png\"\r\n")
	body.WriteString("Content-Type: image/png\r\n\r\n")
	body.WriteString(pngBytes)
	body.WriteString("\r\n--" + boundary + "--\r\n")

	req := authedJSONRequest(http.MethodPost, "/api/user/profile-image", body.String(), user.ID)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	rec := httptest.NewRecorder()
	env.handler.HandleUploadProfileImage(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("real png: got status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	json.NewDecoder(rec.Body).Decode(&resp)
	if !strings.HasPrefix(resp["profileImage"], "/uploads/profile-") {
		t.Errorf("public path: got %q", resp["profileImage"])
	}

	updated, err := model.GetUserByID(database.DB, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ProfileImage != resp["profileImage"] {
		t.Errorf("stored path %q does not match response %q", updated.ProfileImage, resp["profileImage"])
	}
}
