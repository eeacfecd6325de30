package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
)

type DeleteAccountRequest struct {
	Password string `json:"password"`
}

func (h *UserHandler) DeleteAccountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Corpo do pedido inválido", http.StatusBadRequest)
		return
	}

	user, err := model.GetUserByID(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to get user for account deletion", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao obter informações do utilizador", http.StatusInternalServerError)
		return
	}

	// Contas Google não têm password local para confirmar.
	if user.AuthProvider == "local" {
		if err := user.CheckPassword(req.Password); err != nil {
			logger.L.Warn("Password mismatch for account deletion", "userID", userID)
			sendJSONError(w, "Password incorreta. A conta não foi apagada.", http.StatusForbidden)
			return
		}
	}

	txDB, err := database.DB.Begin()
	if err != nil {
		logger.L.Error("Failed to begin transaction for account deletion", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao apagar a conta", http.StatusInternalServerError)
		return
	}
	committed := false
	defer func() {
		if !committed && txDB != nil {
			if rbErr := txDB.Rollback(); rbErr != nil {
				logger.L.Error("Error rolling back DB transaction for account deletion", "userID", userID, "rollbackError", rbErr)
			}
		}
	}()

	if _, err = txDB.Exec("DELETE FROM notifications WHERE user_id = ?", userID); err != nil {
		logger.L.Error("Failed to delete notifications for user", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao apagar os dados da conta (notificações)", http.StatusInternalServerError)
		return
	}

	if _, err = txDB.Exec("DELETE FROM login_history WHERE user_id = ?", userID); err != nil {
		logger.L.Error("Failed to delete login history for user", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao apagar os dados da conta (histórico)", http.StatusInternalServerError)
		return
	}

	if _, err = txDB.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		logger.L.Error("Failed to delete sessions for user", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao apagar os dados da conta (sessões)", http.StatusInternalServerError)
		return
	}

	if _, err = txDB.Exec("DELETE FROM users WHERE id = ?", userID); err != nil {
		logger.L.Error("Failed to delete user from users table", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao apagar a conta do utilizador", http.StatusInternalServerError)
		return
	}

	if err = txDB.Commit(); err != nil {
		logger.L.Error("Failed to commit transaction for account deletion", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao finalizar a remoção da conta", http.StatusInternalServerError)
		return
	}
	committed = true

	h.reportService.InvalidateUser(userID)

	if user.ProfileImage != "" {
		if err := h.uploadService.RemoveProfileImage(user.ProfileImage); err != nil {
			logger.L.Warn("Failed to remove profile image after account deletion", "userID", userID, "error", err)
		}
	}

	logger.L.Info("Account deleted successfully", "userID", userID)
	w.WriteHeader(http.StatusNoContent)
}
