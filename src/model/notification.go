package model

import (
	"database/sql"
	"fmt"
	"time"
)

// Notification types.
const (
	NotificationTradeSuccess = "trade_success"
	NotificationTradeFailure = "trade_failure"
	NotificationDeposit      = "deposit"
	NotificationWithdrawal   = "withdrawal"
	NotificationLevelUp      = "level_up"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Unread    bool      `json:"unread"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationMessage monta a mensagem pt-BR padrão para cada tipo de
// notificação. Para level_up, custom substitui o texto padrão quando
// não vazio.
func NotificationMessage(notifType string, amount float64, asset, custom string) string {
	switch notifType {
	case NotificationTradeSuccess:
		return fmt.Sprintf("Trade bem-sucedido! Você ganhou R$%.2f em %s", amount, asset)
	case NotificationTradeFailure:
		return fmt.Sprintf("Trade encerrado com perda de R$%.2f em %s", amount, asset)
	case NotificationDeposit:
		return fmt.Sprintf("Depósito de R$%.2f realizado com sucesso", amount)
	case NotificationWithdrawal:
		return fmt.Sprintf("Saque de R$%.2f processado com sucesso", amount)
	case NotificationLevelUp:
		if custom != "" {
			return custom
		}
		return "Você subiu de nível! Parabéns, continue assim!"
	default:
		return custom
	}
}

func CreateNotification(db *sql.DB, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	query := `
	INSERT INTO notifications (user_id, type, message, unread, created_at)
	VALUES (?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(n.UserID, n.Type, n.Message, n.Unread, n.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = id
	return nil
}

func ListNotifications(db *sql.DB, userID int64, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, user_id, type, message, unread, created_at
	FROM notifications
	WHERE user_id = ?
	ORDER BY created_at DESC, id DESC
	LIMIT ?`

	rows, err := db.Query(query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Message, &n.Unread, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func CountUnreadNotifications(db *sql.DB, userID int64) (int64, error) {
	var count int64
	err := db.QueryRow(
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND unread = 1`, userID).Scan(&count)
	return count, err
}

func MarkNotificationRead(db *sql.DB, userID, notificationID int64) error {
	query := `UPDATE notifications SET unread = 0 WHERE id = ? AND user_id = ?`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.Exec(notificationID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func MarkAllNotificationsRead(db *sql.DB, userID int64) error {
	query := `UPDATE notifications SET unread = 0 WHERE user_id = ? AND unread = 1`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(userID)
	return err
}
