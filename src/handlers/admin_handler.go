package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
)

// HandleGetAdminStats devolve contadores globais do painel de
// administração.
func (h *UserHandler) HandleGetAdminStats(w http.ResponseWriter, r *http.Request) {
	totalUsers, err := model.CountUsers(database.DB)
	if err != nil {
		logger.L.Error("Failed to count users", "error", err)
		sendJSONError(w, "Falha ao carregar as estatísticas", http.StatusInternalServerError)
		return
	}
	verifiedUsers, err := model.CountVerifiedUsers(database.DB)
	if err != nil {
		logger.L.Error("Failed to count verified users", "error", err)
		sendJSONError(w, "Falha ao carregar as estatísticas", http.StatusInternalServerError)
		return
	}

	var activeSessions, totalLogins int64
	if err := database.DB.QueryRow("SELECT COUNT(*) FROM sessions WHERE is_blocked = FALSE AND expires_at > ?", time.Now()).Scan(&activeSessions); err != nil {
		logger.L.Error("Failed to count active sessions", "error", err)
		sendJSONError(w, "Falha ao carregar as estatísticas", http.StatusInternalServerError)
		return
	}
	if err := database.DB.QueryRow("SELECT COUNT(*) FROM login_history").Scan(&totalLogins); err != nil {
		logger.L.Error("Failed to count login history", "error", err)
		sendJSONError(w, "Falha ao carregar as estatísticas", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]int64{
		"totalUsers":     totalUsers,
		"verifiedUsers":  verifiedUsers,
		"activeSessions": activeSessions,
		"totalLogins":    totalLogins,
	})
}

// HandleSetupMFA gera um novo segredo TOTP para o administrador e devolve
// o QR Code. O segredo só passa a valer depois de verificado.
func (h *UserHandler) HandleSetupMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to load user for MFA setup", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao iniciar a configuração de MFA", http.StatusInternalServerError)
		return
	}
	if user.MfaEnabled {
		sendJSONError(w, "MFA já está ativo nesta conta", http.StatusConflict)
		return
	}

	secret, qrCode, err := h.mfaService.GenerateMFASecret(user.Email)
	if err != nil {
		logger.L.Error("Failed to generate MFA secret", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao gerar o segredo de MFA", http.StatusInternalServerError)
		return
	}

	if err := user.UpdateMfaSecret(database.DB, secret); err != nil {
		logger.L.Error("Failed to persist MFA secret", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao guardar o segredo de MFA", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{
		"secret": secret,
		"qrCode": qrCode,
	})
}

type mfaTokenRequest struct {
	Token string `json:"token"`
}

// HandleVerifyMFA confirma o primeiro código TOTP e ativa o MFA.
func (h *UserHandler) HandleVerifyMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	var req mfaTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		sendJSONError(w, "Código TOTP em falta", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to load user for MFA verify", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao verificar o MFA", http.StatusInternalServerError)
		return
	}
	if user.MfaSecret == "" {
		sendJSONError(w, "Inicie a configuração de MFA primeiro", http.StatusBadRequest)
		return
	}

	if !h.mfaService.ValidateToken(user.MfaSecret, req.Token) {
		logger.L.Warn("Invalid MFA token during verification", "userID", userID)
		sendJSONError(w, "Código TOTP inválido", http.StatusUnauthorized)
		return
	}

	if err := user.UpdateMfaEnabled(database.DB, true); err != nil {
		logger.L.Error("Failed to enable MFA", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao ativar o MFA", http.StatusInternalServerError)
		return
	}

	logger.L.Info("MFA enabled", "userID", userID)
	sendJSON(w, http.StatusOK, map[string]string{"message": "MFA ativado com sucesso"})
}

// HandleDisableMFA desativa o MFA. Exige um código TOTP válido para
// impedir a desativação por sessão roubada.
func (h *UserHandler) HandleDisableMFA(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	var req mfaTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		sendJSONError(w, "Código TOTP em falta", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to load user for MFA disable", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao desativar o MFA", http.StatusInternalServerError)
		return
	}
	if !user.MfaEnabled {
		sendJSONError(w, "MFA não está ativo nesta conta", http.StatusBadRequest)
		return
	}

	if !h.mfaService.ValidateToken(user.MfaSecret, req.Token) {
		logger.L.Warn("Invalid MFA token during disable", "userID", userID)
		sendJSONError(w, "Código TOTP inválido", http.StatusUnauthorized)
		return
	}

	if err := user.UpdateMfaEnabled(database.DB, false); err != nil {
		logger.L.Error("Failed to disable MFA", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao desativar o MFA", http.StatusInternalServerError)
		return
	}
	if err := user.UpdateMfaSecret(database.DB, ""); err != nil {
		logger.L.Warn("Failed to clear MFA secret after disable", "userID", userID, "error", err)
	}

	logger.L.Info("MFA disabled", "userID", userID)
	sendJSON(w, http.StatusOK, map[string]string{"message": "MFA desativado"})
}
