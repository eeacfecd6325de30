package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/security/validation"
)

// The reset request always answers the same way so the endpoint cannot be
// used to probe which emails are registered.
const genericResetMessage = "Se existir uma conta com esse email e estiver verificada, foi enviado um link de redefinição de senha."

func (h *UserHandler) RequestPasswordResetHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.ValidateEmail(req.Email); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByEmail(database.DB, req.Email)
	if err != nil {
		logger.L.Info("Password reset requested, user not found or DB error, sending generic response", "errorIfAny", err)
		sendJSON(w, http.StatusOK, map[string]string{"message": genericResetMessage})
		return
	}
	if !user.IsEmailVerified {
		logger.L.Info("Password reset requested for unverified email, sending generic response", "userID", user.ID)
		sendJSON(w, http.StatusOK, map[string]string{"message": genericResetMessage})
		return
	}

	resetToken, err := newRandomToken()
	if err != nil {
		logger.L.Error("Failed to generate password reset token bytes", "error", err)
		sendJSONError(w, "Failed to process password reset request", http.StatusInternalServerError)
		return
	}
	tokenExpiry := time.Now().Add(config.Cfg.PasswordResetTokenExpiry)

	if err := user.SetPasswordResetToken(database.DB, resetToken, tokenExpiry); err != nil {
		logger.L.Error("Failed to set password reset token in DB", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to process password reset request", http.StatusInternalServerError)
		return
	}

	if err := h.emailService.SendPasswordResetEmail(user.Email, user.Nome, resetToken); err != nil {
		logger.L.Error("Failed to send password reset email", "userID", user.ID, "error", err)
	}

	logger.L.Info("Password reset email process initiated", "userID", user.ID)
	sendJSON(w, http.StatusOK, map[string]string{"message": genericResetMessage})
}

func (h *UserHandler) ResetPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token           string `json:"token"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Token == "" {
		sendJSONError(w, "Reset token is required", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Password != req.ConfirmPassword {
		sendJSONError(w, "As senhas não coincidem", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByPasswordResetToken(database.DB, req.Token)
	if err != nil {
		sendJSONError(w, "Token de redefinição inválido ou expirado", http.StatusBadRequest)
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logger.L.Error("Failed to hash new password", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	if err := user.UpdatePassword(database.DB, hashedPassword); err != nil {
		logger.L.Error("Failed to update password", "userID", user.ID, "error", err)
		sendJSONError(w, "Failed to reset password", http.StatusInternalServerError)
		return
	}

	// Every live session dies with the old password.
	if err := model.DeleteSessionsByUserID(database.DB, user.ID); err != nil {
		logger.L.Error("Failed to invalidate sessions after password reset", "userID", user.ID, "error", err)
	}

	logger.L.Info("Password reset completed", "userID", user.ID)
	sendJSON(w, http.StatusOK, map[string]string{"message": "Senha redefinida com sucesso. Já pode iniciar sessão."})
}

func (h *UserHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		CurrentPassword    string `json:"current_password"`
		NewPassword        string `json:"new_password"`
		ConfirmNewPassword string `json:"confirm_new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidatePassword(req.NewPassword); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.NewPassword != req.ConfirmNewPassword {
		sendJSONError(w, "As senhas não coincidem", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		sendJSONError(w, "Utilizador não encontrado", http.StatusNotFound)
		return
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		sendJSONError(w, "Senha atual incorreta", http.StatusUnauthorized)
		return
	}

	hashedPassword, err := h.authService.HashPassword(req.NewPassword)
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to hash new password", "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	if err := user.UpdatePassword(database.DB, hashedPassword); err != nil {
		logger.FromContext(r.Context()).Error("Failed to update password", "error", err)
		sendJSONError(w, "Failed to change password", http.StatusInternalServerError)
		return
	}

	logger.FromContext(r.Context()).Info("Password changed")
	sendJSON(w, http.StatusOK, map[string]string{"message": "Senha alterada com sucesso."})
}
