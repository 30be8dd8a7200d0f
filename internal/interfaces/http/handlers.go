package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/report"
	"github.com/garyjia/expense-approval/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService  service.ExpenseService
	workflowService service.WorkflowService
	queryService    service.QueryService
	resolver        service.RuleSetResolver
	exporter        *report.HistoryExporter
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	workflowService service.WorkflowService,
	queryService service.QueryService,
	resolver service.RuleSetResolver,
	exporter *report.HistoryExporter,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService:  expenseService,
		workflowService: workflowService,
		queryService:    queryService,
		resolver:        resolver,
		exporter:        exporter,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateExpenseRequest represents the expense submission payload
type CreateExpenseRequest struct {
	CompanyID       int64   `json:"company_id" binding:"required"`
	SubmitterID     int64   `json:"submitter_id" binding:"required"`
	Description     string  `json:"description" binding:"required"`
	Amount          float64 `json:"amount" binding:"required"`
	Currency        string  `json:"currency"`
	ConvertedAmount float64 `json:"converted_amount"`
	Category        string  `json:"category"`
	ExpenseDate     string  `json:"expense_date"`
	ReceiptURL      string  `json:"receipt_url"`
}

// UpdateExpenseRequest represents a submitter edit; absent fields are left
// unchanged
type UpdateExpenseRequest struct {
	SubmitterID int64    `json:"submitter_id" binding:"required"`
	Description *string  `json:"description"`
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	Category    *string  `json:"category"`
	ExpenseDate *string  `json:"expense_date"`
}

// DecisionRequest represents an approve/reject payload
type DecisionRequest struct {
	UserID   int64  `json:"user_id" binding:"required"`
	Comments string `json:"comments"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	expenseDate, err := parseDate(req.ExpenseDate)
	if err != nil {
		h.badRequest(c, "invalid expense_date", err)
		return
	}

	expense, err := h.expenseService.Create(c.Request.Context(), service.CreateExpenseInput{
		CompanyID:       req.CompanyID,
		SubmitterID:     req.SubmitterID,
		Description:     utils.SanitizeString(req.Description),
		Amount:          req.Amount,
		Currency:        req.Currency,
		ConvertedAmount: req.ConvertedAmount,
		Category:        req.Category,
		ExpenseDate:     expenseDate,
		ReceiptURL:      req.ReceiptURL,
	})
	if err != nil {
		h.serviceError(c, "Failed to create expense", err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    expense,
	})
}

// ListExpenses handles GET /api/expenses?submitter_id=
func (h *Handlers) ListExpenses(c *gin.Context) {
	submitterID, ok := h.queryID(c, "submitter_id")
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListBySubmitter(c.Request.Context(), submitterID)
	if err != nil {
		h.serviceError(c, "Failed to list expenses", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expenses,
	})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	detail, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, "Failed to get expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    detail,
	})
}

// UpdateExpense handles PUT /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	input := service.UpdateExpenseInput{
		Description: req.Description,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
	}
	if req.ExpenseDate != nil {
		expenseDate, err := parseDate(*req.ExpenseDate)
		if err != nil {
			h.badRequest(c, "invalid expense_date", err)
			return
		}
		input.ExpenseDate = &expenseDate
	}

	expense, err := h.expenseService.Update(c.Request.Context(), id, req.SubmitterID, input)
	if err != nil {
		h.serviceError(c, "Failed to update expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expense,
	})
}

// ApproveExpense handles POST /api/expenses/:id/approve
func (h *Handlers) ApproveExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.workflowService.Approve(c.Request.Context(), id, req.UserID, utils.SanitizeString(req.Comments))
	if err != nil {
		h.serviceError(c, "Failed to approve expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// RejectExpense handles POST /api/expenses/:id/reject
func (h *Handlers) RejectExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.workflowService.Reject(c.Request.Context(), id, req.UserID, utils.SanitizeString(req.Comments))
	if err != nil {
		h.serviceError(c, "Failed to reject expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    result,
	})
}

// PendingApprovals handles GET /api/approvals/pending?user_id=
func (h *Handlers) PendingApprovals(c *gin.Context) {
	userID, ok := h.queryID(c, "user_id")
	if !ok {
		return
	}

	pending, err := h.queryService.PendingForUser(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, "Failed to list pending approvals", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    pending,
	})
}

// ApprovalHistory handles GET /api/approvals/history?user_id=
func (h *Handlers) ApprovalHistory(c *gin.Context) {
	userID, ok := h.queryID(c, "user_id")
	if !ok {
		return
	}

	history, err := h.queryService.HistoryForUser(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, "Failed to list approval history", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    history,
	})
}

// ExportApprovalHistory handles GET /api/approvals/history/export?user_id=
func (h *Handlers) ExportApprovalHistory(c *gin.Context) {
	userID, ok := h.queryID(c, "user_id")
	if !ok {
		return
	}

	history, err := h.queryService.HistoryForUser(c.Request.Context(), userID)
	if err != nil {
		h.serviceError(c, "Failed to load approval history", err)
		return
	}

	buf, err := h.exporter.Export(history)
	if err != nil {
		h.serviceError(c, "Failed to export approval history", err)
		return
	}

	filename := fmt.Sprintf("approval-history-%d-%s.xlsx", userID, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		buf.Bytes())
}

// CompanyPendingApprovals handles GET /api/approvals/company?company_id=&role=
func (h *Handlers) CompanyPendingApprovals(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}
	role := c.Query("role")

	pending, err := h.queryService.CompanyPending(c.Request.Context(), companyID, role)
	if err != nil {
		h.serviceError(c, "Failed to list company approvals", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    pending,
	})
}

// ListRules handles GET /api/rules?company_id=
func (h *Handlers) ListRules(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}

	rules, err := h.resolver.ListRules(c.Request.Context(), companyID)
	if err != nil {
		h.serviceError(c, "Failed to list rules", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rules,
	})
}

// ListRoles handles GET /api/rules/roles?company_id=
func (h *Handlers) ListRoles(c *gin.Context) {
	companyID, ok := h.queryID(c, "company_id")
	if !ok {
		return
	}

	roles, err := h.resolver.ListRoles(c.Request.Context(), companyID)
	if err != nil {
		h.serviceError(c, "Failed to list roles", err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    roles,
	})
}

// pathID parses the :id path parameter
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid expense ID", err)
		return 0, false
	}
	return id, true
}

// queryID parses a required int64 query parameter
func (h *Handlers) queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.badRequest(c, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", c.GetString("request_id"))
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg,
	})
}

// serviceError maps the application error taxonomy onto HTTP statuses
func (h *Handlers) serviceError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err, "request_id", c.GetString("request_id"))
	c.JSON(statusFor(err), Response{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, approval.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, approval.ErrUnauthorized), errors.Is(err, approval.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, approval.ErrNoCurrentStep):
		return http.StatusConflict
	case errors.Is(err, approval.ErrValidation), errors.Is(err, approval.ErrAlreadyDecided):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseDate accepts a date-only or RFC3339 timestamp; empty means now
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
