package server

import (
	"net/http"
	"strings"
	"time"

	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type ingestJobRequest struct {
	DriverID     string          `json:"driver_id"`
	JobDate      string          `json:"job_date"`
	Customer     string          `json:"customer"`
	TruckType    string          `json:"truck_type"`
	ChargedHours decimal.Decimal `json:"charged_hours"`
	RatePerHour  decimal.Decimal `json:"rate_per_hour"`
	Description  string          `json:"description"`
}

func (s *Server) IngestJob(c *gin.Context) {
	var req ingestJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	jobDate, err := parseDate(req.JobDate)
	if err != nil {
		AbortWithError(c, newValidationError("job_date", "invalid_date", "expected YYYY-MM-DD"))
		return
	}

	item, err := s.jobSvc.Ingest(c.Request.Context(), jobdomain.IngestJobRequest{
		DriverID:     req.DriverID,
		JobDate:      jobDate,
		Customer:     req.Customer,
		TruckType:    req.TruckType,
		ChargedHours: req.ChargedHours,
		RatePerHour:  req.RatePerHour,
		Description:  req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) ListJobs(c *gin.Context) {
	req := jobdomain.ListJobRequest{}
	if driverID := strings.TrimSpace(c.Query("driver_id")); driverID != "" {
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(c.Query("week_ending")); raw != "" {
		weekEnding, err := parseDate(raw)
		if err != nil {
			AbortWithError(c, newValidationError("week_ending", "invalid_date", "expected YYYY-MM-DD"))
			return
		}
		req.WeekEnding = &weekEnding
	}

	resp, err := s.jobSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Jobs})
}

func parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), time.UTC)
}
