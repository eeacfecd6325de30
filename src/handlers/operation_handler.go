package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/reporting"
)

// resolveWindow interpreta os parâmetros de janela temporal partilhados
// entre a listagem de operações e o export CSV: ?period=... ou
// ?month=...&year=....
func resolveWindow(r *http.Request) (reporting.DateRange, error) {
	monthName, year, monthly, err := parseMonthYear(r)
	if err != nil {
		return reporting.DateRange{}, err
	}
	if monthly {
		return reporting.MonthRange(monthName, year, time.Local)
	}
	period, err := reporting.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return reporting.DateRange{}, errors.New("período inválido. Use today, week ou month")
	}
	return reporting.Resolve(period, time.Now()), nil
}

// HandleListOperations devolve a tabela de operações paginada.
// Parâmetros: period ou month+year, result (all|positive|negative),
// page e pageSize.
func (h *UserHandler) HandleListOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	window, err := resolveWindow(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, err := reporting.ParseResultFilter(r.URL.Query().Get("result"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.reportService.Operations(r.Context(), userID, window, filter, page, pageSize)
	if err != nil {
		sendReportError(w, userID, err)
		return
	}

	sendJSON(w, http.StatusOK, result)
}

// HandleExportOperationsCSV gera o ficheiro operacoes.csv da janela
// pedida. Aceita os mesmos parâmetros de janela e filtro da listagem.
func (h *UserHandler) HandleExportOperationsCSV(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	window, err := resolveWindow(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter, err := reporting.ParseResultFilter(r.URL.Query().Get("result"))
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	csv, err := h.reportService.ExportCSV(r.Context(), userID, window, filter)
	if err != nil {
		sendReportError(w, userID, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+reporting.CSVFilename)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		logger.FromContext(r.Context()).Error("Error writing CSV response", "userID", userID, "error", err)
	}
}
