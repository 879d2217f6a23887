package server

import (
	"net/http"
	"strings"
	"time"

	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createDeductionRequest struct {
	DriverID       string               `json:"driver_id"`
	Kind           deductiondomain.Kind `json:"kind"`
	Description    string               `json:"description"`
	TotalAmount    decimal.Decimal      `json:"total_amount"`
	AmountPerCycle *decimal.Decimal     `json:"amount_per_cycle,omitempty"`
	Frequency      string               `json:"frequency"`
	StartDate      string               `json:"start_date"`
}

type updateDeductionRequest struct {
	Description    *string          `json:"description,omitempty"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	AmountPerCycle *decimal.Decimal `json:"amount_per_cycle,omitempty"`
	Frequency      *string          `json:"frequency,omitempty"`
	StartDate      *string          `json:"start_date,omitempty"`
}

func (s *Server) ListDeductions(c *gin.Context) {
	req := deductiondomain.ListDeductionRequest{}
	if driverID := strings.TrimSpace(c.Query("driver_id")); driverID != "" {
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := deductiondomain.Status(strings.ToUpper(raw))
		req.Status = &status
	}

	resp, err := s.deductionSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Deductions})
}

func (s *Server) GetDeductionByID(c *gin.Context) {
	item, err := s.deductionSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) CreateDeduction(c *gin.Context) {
	var req createDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_date", "expected YYYY-MM-DD"))
		return
	}

	item, err := s.deductionSvc.Create(c.Request.Context(), deductiondomain.CreateDeductionRequest{
		DriverID:       req.DriverID,
		Kind:           req.Kind,
		Description:    req.Description,
		TotalAmount:    req.TotalAmount,
		AmountPerCycle: req.AmountPerCycle,
		Frequency:      deductiondomain.Frequency(strings.ToUpper(req.Frequency)),
		StartDate:      startDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) UpdateDeduction(c *gin.Context) {
	var req updateDeductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	update := deductiondomain.UpdateDeductionRequest{
		Description:    req.Description,
		TotalAmount:    req.TotalAmount,
		AmountPerCycle: req.AmountPerCycle,
	}
	if req.Frequency != nil {
		frequency := deductiondomain.Frequency(strings.ToUpper(*req.Frequency))
		update.Frequency = &frequency
	}
	if req.StartDate != nil {
		startDate, err := parseDate(*req.StartDate)
		if err != nil {
			AbortWithError(c, newValidationError("start_date", "invalid_date", "expected YYYY-MM-DD"))
			return
		}
		update.StartDate = &startDate
	}

	item, err := s.deductionSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DeleteDeduction(c *gin.Context) {
	if err := s.deductionSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CancelDeduction(c *gin.Context) {
	item, err := s.deductionSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

// ListPendingDeductions previews which deductions would fall due if the
// driver's invoice for the given week were finalised now.
func (s *Server) ListPendingDeductions(c *gin.Context) {
	driverID := strings.TrimSpace(c.Param("id"))

	weekEnding := time.Now().UTC()
	if raw := strings.TrimSpace(c.Query("week_ending")); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("week_ending", "invalid_date", "expected YYYY-MM-DD"))
			return
		}
		weekEnding = parsed
	}

	pending, err := s.deductionSvc.PendingForDriver(c.Request.Context(), driverID, weekEnding)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pending})
}
