package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/birizinit/meuacessor/src/broker"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/reporting"
	"github.com/birizinit/meuacessor/src/services"
)

const brokerTokenMissingMessage = "Token da corretora não configurado. Salve-o em Perfil."

// sendReportError maps the service error chain onto HTTP statuses. A
// missing broker token is a user-fixable state, not a server fault.
func sendReportError(w http.ResponseWriter, userID int64, err error) {
	if errors.Is(err, services.ErrBrokerTokenMissing) {
		sendJSONError(w, brokerTokenMissingMessage, http.StatusConflict)
		return
	}
	var apiErr *broker.APIError
	if errors.As(err, &apiErr) {
		logger.L.Error("Broker API error", "userID", userID, "status", apiErr.StatusCode, "error", err)
		sendJSONError(w, "A corretora não respondeu corretamente. Tente novamente.", http.StatusBadGateway)
		return
	}
	logger.L.Error("Report generation failed", "userID", userID, "error", err)
	sendJSONError(w, "Falha ao gerar o relatório", http.StatusInternalServerError)
}

// parseMonthYear lê os parâmetros opcionais month (nome em português) e
// year. Retorna ok=false quando o pedido não é mensal.
func parseMonthYear(r *http.Request) (monthName string, year int, ok bool, err error) {
	monthName = r.URL.Query().Get("month")
	yearStr := r.URL.Query().Get("year")
	if monthName == "" && yearStr == "" {
		return "", 0, false, nil
	}
	if monthName == "" || yearStr == "" {
		return "", 0, false, errors.New("os parâmetros month e year devem ser enviados juntos")
	}
	year, convErr := strconv.Atoi(yearStr)
	if convErr != nil || year < 2000 || year > 2200 {
		return "", 0, false, errors.New("ano inválido")
	}
	return monthName, year, true, nil
}

// HandleGetSummary devolve os agregados do dashboard. Aceita
// ?period=today|week|month ou ?month=<nome>&year=<ano>.
func (h *UserHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	monthName, year, monthly, err := parseMonthYear(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var summary *reporting.Summary
	if monthly {
		summary, err = h.reportService.MonthSummary(r.Context(), userID, monthName, year)
	} else {
		period, perr := reporting.ParsePeriod(r.URL.Query().Get("period"))
		if perr != nil {
			sendJSONError(w, "Período inválido. Use today, week ou month.", http.StatusBadRequest)
			return
		}
		summary, err = h.reportService.Summary(r.Context(), userID, period, time.Now())
	}
	if err != nil {
		if monthly && errors.Is(err, reporting.ErrUnknownMonth) {
			sendJSONError(w, "Mês inválido", http.StatusBadRequest)
			return
		}
		sendReportError(w, userID, err)
		return
	}

	sendJSON(w, http.StatusOK, summary)
}

// HandleGetTopSymbols devolve o ranking dos pares mais lucrativos do
// período.
func (h *UserHandler) HandleGetTopSymbols(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	period, err := reporting.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		sendJSONError(w, "Período inválido. Use today, week ou month.", http.StatusBadRequest)
		return
	}

	stats, err := h.reportService.TopSymbols(r.Context(), userID, period, time.Now())
	if err != nil {
		sendReportError(w, userID, err)
		return
	}
	if stats == nil {
		stats = []reporting.RankedSymbolStat{}
	}

	sendJSON(w, http.StatusOK, map[string]any{"symbols": stats})
}

// HandleGetWallets expõe os saldos das carteiras da corretora.
func (h *UserHandler) HandleGetWallets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	wallets, err := h.reportService.Wallets(r.Context(), userID)
	if err != nil {
		sendReportError(w, userID, err)
		return
	}
	if wallets == nil {
		wallets = []broker.Wallet{}
	}

	sendJSON(w, http.StatusOK, map[string]any{"wallets": wallets})
}
