package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/birizinit/meuacessor/src/database"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/security/validation"
)

// HandleListNotifications devolve as notificações mais recentes do
// utilizador e a contagem de não lidas. ?limit= limita o número de itens.
func (h *UserHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := model.ListNotifications(database.DB, userID, limit)
	if err != nil {
		logger.L.Error("Failed to list notifications", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao carregar as notificações", http.StatusInternalServerError)
		return
	}
	unread, err := model.CountUnreadNotifications(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to count unread notifications", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao carregar as notificações", http.StatusInternalServerError)
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unreadCount":   unread,
	})
}

// HandleMarkNotificationRead marca uma notificação como lida. O id vem do
// path e tem de pertencer ao utilizador autenticado.
func (h *UserHandler) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	notificationID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || notificationID <= 0 {
		sendJSONError(w, "Identificador de notificação inválido", http.StatusBadRequest)
		return
	}

	if err := model.MarkNotificationRead(database.DB, userID, notificationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Notificação não encontrada", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to mark notification read", "userID", userID, "notificationID", notificationID, "error", err)
		sendJSONError(w, "Falha ao atualizar a notificação", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleMarkAllNotificationsRead marca todas as notificações do
// utilizador como lidas.
func (h *UserHandler) HandleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	if err := model.MarkAllNotificationsRead(database.DB, userID); err != nil {
		logger.L.Error("Failed to mark all notifications read", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao atualizar as notificações", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type createNotificationRequest struct {
	UserID  int64   `json:"userId"`
	Type    string  `json:"type"`
	Amount  float64 `json:"amount"`
	Asset   string  `json:"asset"`
	Message string  `json:"message"`
}

// HandleCreateNotification insere uma notificação para um utilizador.
// Rota de administração; a mensagem é montada a partir do tipo quando
// não enviada explicitamente.
func (h *UserHandler) HandleCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Corpo do pedido inválido", http.StatusBadRequest)
		return
	}
	if req.UserID <= 0 {
		sendJSONError(w, "userId é obrigatório", http.StatusBadRequest)
		return
	}
	switch req.Type {
	case model.NotificationTradeSuccess, model.NotificationTradeFailure,
		model.NotificationDeposit, model.NotificationWithdrawal,
		model.NotificationLevelUp:
	default:
		sendJSONError(w, "Tipo de notificação inválido", http.StatusBadRequest)
		return
	}

	if _, err := model.GetUserByID(database.DB, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			sendJSONError(w, "Utilizador não encontrado", http.StatusNotFound)
			return
		}
		logger.L.Error("Failed to load user for notification", "targetUserID", req.UserID, "error", err)
		sendJSONError(w, "Falha ao criar a notificação", http.StatusInternalServerError)
		return
	}

	message := model.NotificationMessage(req.Type, req.Amount, validation.SanitizeText(req.Asset), validation.SanitizeText(req.Message))
	if message == "" {
		sendJSONError(w, "message é obrigatório para este tipo", http.StatusBadRequest)
		return
	}

	notification := &model.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Message: message,
		Unread:  true,
	}
	if err := model.CreateNotification(database.DB, notification); err != nil {
		logger.L.Error("Failed to create notification", "targetUserID", req.UserID, "error", err)
		sendJSONError(w, "Falha ao criar a notificação", http.StatusInternalServerError)
		return
	}

	sendJSON(w, http.StatusCreated, notification)
}
