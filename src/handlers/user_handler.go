package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/security"
	"github.com/birizinit/meuacessor/src/security/validation"
	"github.com/birizinit/meuacessor/src/services"
)

type contextKey string

const userIDContextKey contextKey = "userID"

// UserHandler carries every service the HTTP surface needs. The route
// groups in main hang off this one struct.
type UserHandler struct {
	authService   *security.AuthService
	emailService  services.EmailService
	uploadService services.UploadService
	reportService services.TradeReportService
	mfaService    *services.MFAService
	cache         *cache.Cache
}

func NewUserHandler(
	authService *security.AuthService,
	emailService services.EmailService,
	uploadService services.UploadService,
	reportService services.TradeReportService,
	mfaService *services.MFAService,
	reportCache *cache.Cache,
) *UserHandler {
	return &UserHandler{
		authService:   authService,
		emailService:  emailService,
		uploadService: uploadService,
		reportService: reportService,
		mfaService:    mfaService,
		cache:         reportCache,
	}
}

func sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "message", message, "statusCode", statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// GetUserIDFromContext extracts the authenticated user ID placed by
// AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(userIDContextKey).(int64)
	return userID, ok
}

// profileResponse is the public shape of a user profile.
type profileResponse struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Nome          string `json:"nome"`
	Sobrenome     string `json:"sobrenome"`
	CPF           string `json:"cpf"`
	Telefone      string `json:"telefone"`
	Nascimento    string `json:"nascimento"`
	ProfileImage  string `json:"profile_image"`
	Preferences   string `json:"preferences"`
	HasAPIToken   bool   `json:"has_api_token"`
	EmailVerified bool   `json:"is_email_verified"`
	MfaEnabled    bool   `json:"mfa_enabled"`
	IsAdmin       bool   `json:"is_admin"`
}

func toProfileResponse(user *model.User) profileResponse {
	return profileResponse{
		ID:            user.ID,
		Email:         user.Email,
		Nome:          user.Nome,
		Sobrenome:     user.Sobrenome,
		CPF:           user.CPF,
		Telefone:      user.Telefone,
		Nascimento:    user.Nascimento,
		ProfileImage:  user.ProfileImage,
		Preferences:   user.Preferences,
		HasAPIToken:   user.APIToken != "",
		EmailVerified: user.IsEmailVerified,
		MfaEnabled:    user.MfaEnabled,
		IsAdmin:       isAdmin(user.Email),
	}
}

// HandleGetProfile returns the authenticated user's profile. The broker
// token itself never leaves the backend, only whether one is saved.
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Utilizador não encontrado", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load user profile", "error", err)
		sendJSONError(w, "Falha ao obter o perfil", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, toProfileResponse(user))
}

// HandleUpdateProfile updates the editable profile fields. Setting a new
// broker token invalidates the cached trade history so the next dashboard
// load refetches with the new credentials.
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Nome       *string `json:"nome"`
		Sobrenome  *string `json:"sobrenome"`
		Telefone   *string `json:"telefone"`
		Nascimento *string `json:"nascimento"`
		APIToken   *string `json:"api_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		sendJSONError(w, "Utilizador não encontrado", http.StatusNotFound)
		return
	}

	tokenChanged := false
	if req.Nome != nil {
		nome := validation.SanitizeText(strings.TrimSpace(*req.Nome))
		if err := validation.ValidateStringNotEmpty(nome, "nome"); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := validation.ValidateStringMaxLength(nome, validation.MaxNameLength, "nome"); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user.Nome = nome
	}
	if req.Sobrenome != nil {
		sobrenome := validation.SanitizeText(strings.TrimSpace(*req.Sobrenome))
		if err := validation.ValidateStringMaxLength(sobrenome, validation.MaxNameLength, "sobrenome"); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user.Sobrenome = sobrenome
	}
	if req.Telefone != nil {
		telefone := strings.TrimSpace(*req.Telefone)
		if err := validation.ValidatePhone(telefone); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user.Telefone = telefone
	}
	if req.Nascimento != nil {
		nascimento := strings.TrimSpace(*req.Nascimento)
		if err := validation.ValidateBirthDate(nascimento); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		user.Nascimento = nascimento
	}
	if req.APIToken != nil {
		token := strings.TrimSpace(*req.APIToken)
		if err := validation.ValidateStringMaxLength(token, validation.MaxAPITokenLength, "api_token"); err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		tokenChanged = token != user.APIToken
		user.APIToken = token
	}

	if err := user.UpdateProfile(database.DB); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update profile", "error", err)
		sendJSONError(w, "Falha ao atualizar o perfil", http.StatusInternalServerError)
		return
	}

	if tokenChanged {
		h.reportService.InvalidateUser(userID)
		logger.FromContext(r.Context()).Info("Broker token changed, report cache invalidated")
	}

	sendJSON(w, http.StatusOK, toProfileResponse(user))
}

// HandleUpdatePreferences stores the client's preferences JSON verbatim
// after a size and well-formedness check.
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		Preferences json.RawMessage `json:"preferences"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Preferences) == 0 {
		sendJSONError(w, "preferences is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidateStringMaxLength(string(req.Preferences), validation.MaxPreferencesLength, "preferences"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		sendJSONError(w, "Utilizador não encontrado", http.StatusNotFound)
		return
	}
	if err := user.UpdatePreferences(database.DB, string(req.Preferences)); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update preferences", "error", err)
		sendJSONError(w, "Falha ao guardar preferências", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{"message": "Preferências guardadas"})
}

func (h *UserHandler) VerifyEmailHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		sendJSONError(w, "Verification token is missing", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByVerificationToken(database.DB, token)
	if err != nil {
		sendJSONError(w, "Invalid or expired verification token.", http.StatusBadRequest)
		return
	}

	if !user.EmailVerificationTokenExpiresAt.IsZero() && time.Now().After(user.EmailVerificationTokenExpiresAt) {
		sendJSONError(w, "Verification token has expired. Please request a new one.", http.StatusBadRequest)
		return
	}

	if err := user.UpdateUserVerificationStatus(database.DB, true); err != nil {
		logger.FromContext(r.Context()).Error("Failed to mark email verified", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to verify email. Please try again or contact support.", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{"message": "Email verificado com sucesso. Já pode iniciar sessão."})
}
