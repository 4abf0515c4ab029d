package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"expense-api/internal/server/models"
	"expense-api/internal/server/services"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type expenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Date        string          `json:"date"`
}

// expenseResponse is the wire shape of a stored expense. Amount becomes a
// float here and only here; all arithmetic upstream is decimal.
type expenseResponse struct {
	ID          int64     `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	CreatedAt   time.Time `json:"created_at"`
}

func toExpenseResponse(e *models.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.InexactFloat64(),
		Category:    e.Category,
		Description: e.Description,
		Date:        e.Date.Format(dateLayout),
		CreatedAt:   e.CreatedAt,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if _, err := s.users.Register(r.Context(), req.Username, req.Password); err != nil {
		if !isClientError(err) {
			s.logger.Error(r.Context(), "registration failed", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	s.logger.Info(r.Context(), "user registered", "username", req.Username)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := services.CreateExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		Description: req.Description,
	}
	if req.Date != "" {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", req.Date))
			return
		}
		in.Date = &date
	}

	expense, err := s.expenses.Create(r.Context(), UsernameFromContext(r.Context()), in)
	if err != nil {
		if !isClientError(err) {
			s.logger.Error(r.Context(), "expense creation failed", "error", err)
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	offset := queryInt(r, "offset", 0)

	result, err := s.expenses.List(r.Context(), UsernameFromContext(r.Context()), limit, offset)
	if err != nil {
		s.logger.Error(r.Context(), "expense listing failed", "error", err)
		writeServiceError(w, err)
		return
	}

	response := make([]expenseResponse, 0, len(result))
	for i := range result {
		response = append(response, toExpenseResponse(&result[i]))
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid expense id")
		return
	}

	if err := s.expenses.Delete(r.Context(), UsernameFromContext(r.Context()), id); err != nil {
		if !isClientError(err) {
			s.logger.Error(r.Context(), "expense deletion failed", "error", err, "id", id)
		}
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.expenses.Summary(r.Context(), UsernameFromContext(r.Context()))
	if err != nil {
		s.logger.Error(r.Context(), "summary failed", "error", err)
		writeServiceError(w, err)
		return
	}

	type categoryTotal struct {
		Category string  `json:"category"`
		Total    float64 `json:"total"`
	}
	response := struct {
		Total      float64         `json:"total"`
		ByCategory []categoryTotal `json:"by_category"`
	}{
		Total:      summary.Total.InexactFloat64(),
		ByCategory: make([]categoryTotal, 0, len(summary.ByCategory)),
	}
	for _, ct := range summary.ByCategory {
		response.ByCategory = append(response.ByCategory, categoryTotal{Category: ct.Category, Total: ct.Total.InexactFloat64()})
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", 0)

	result, err := s.expenses.MonthlySummary(r.Context(), UsernameFromContext(r.Context()), year)
	if err != nil {
		s.logger.Error(r.Context(), "monthly summary failed", "error", err)
		writeServiceError(w, err)
		return
	}

	type monthlyTotal struct {
		Month string  `json:"month"`
		Total float64 `json:"total"`
	}
	response := make([]monthlyTotal, 0, len(result))
	for _, mt := range result {
		response = append(response, monthlyTotal{Month: mt.Month.Format(dateLayout), Total: mt.Total.InexactFloat64()})
	}
	writeJSON(w, http.StatusOK, response)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}
