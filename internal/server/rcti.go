package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	"github.com/bldragon101/worklog/internal/providers/email"
	"github.com/bldragon101/worklog/internal/providers/pdf"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createRctiRequest struct {
	DriverID   string `json:"driver_id"`
	WeekEnding string `json:"week_ending"`
}

type rctiLineRequest struct {
	JobDate      string          `json:"job_date"`
	Customer     string          `json:"customer"`
	TruckType    string          `json:"truck_type"`
	Description  string          `json:"description"`
	ChargedHours decimal.Decimal `json:"charged_hours"`
	RatePerHour  decimal.Decimal `json:"rate_per_hour"`
}

type finaliseRctiRequest struct {
	Overrides map[string]*decimal.Decimal `json:"overrides"`
}

type revertRctiRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) ListRctis(c *gin.Context) {
	req := rctidomain.ListRctiRequest{}
	if driverID := strings.TrimSpace(c.Query("driver_id")); driverID != "" {
		req.DriverID = &driverID
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := rctidomain.RctiStatus(strings.ToUpper(raw))
		req.Status = &status
	}

	resp, err := s.rctiSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Rctis})
}

func (s *Server) CreateRcti(c *gin.Context) {
	var req createRctiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	weekEnding, err := parseDate(req.WeekEnding)
	if err != nil {
		AbortWithError(c, newValidationError("week_ending", "invalid_date", "expected YYYY-MM-DD"))
		return
	}

	item, err := s.rctiSvc.Create(c.Request.Context(), rctidomain.CreateRctiRequest{
		DriverID:   req.DriverID,
		WeekEnding: weekEnding,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetRctiByID(c *gin.Context) {
	detail, err := s.rctiSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) AddRctiLine(c *gin.Context) {
	input, ok := s.bindLineInput(c)
	if !ok {
		return
	}

	line, err := s.rctiSvc.AddLine(c.Request.Context(), strings.TrimSpace(c.Param("id")), input)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": line})
}

func (s *Server) UpdateRctiLine(c *gin.Context) {
	input, ok := s.bindLineInput(c)
	if !ok {
		return
	}

	line, err := s.rctiSvc.UpdateLine(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("lineId")),
		input,
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": line})
}

func (s *Server) DeleteRctiLine(c *gin.Context) {
	err := s.rctiSvc.DeleteLine(c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		strings.TrimSpace(c.Param("lineId")),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) UpdateRctiGst(c *gin.Context) {
	var req rctidomain.UpdateGstRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}

	item, err := s.rctiSvc.UpdateGst(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) FinaliseRcti(c *gin.Context) {
	var req finaliseRctiRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
			return
		}
	}

	resp, err := s.rctiSvc.Finalise(c.Request.Context(), strings.TrimSpace(c.Param("id")), rctidomain.FinaliseRequest{
		Overrides: req.Overrides,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordRctiTransition(string(resp.Rcti.Status))
	total, _ := resp.Rcti.Total.Float64()
	s.metrics.ObserveInvoiceTotal(string(resp.Rcti.GstStatus), total)

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RevertRcti(c *gin.Context) {
	var req revertRctiRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
			return
		}
	}

	item, err := s.rctiSvc.RevertToDraft(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordRctiTransition(string(item.Status))
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) MarkRctiPaid(c *gin.Context) {
	item, err := s.rctiSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordRctiTransition(string(item.Status))
	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) DownloadRctiPdf(c *gin.Context) {
	doc, filename, err := s.buildRctiDocument(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfRenderer.RenderRcti(c.Request.Context(), doc)
	if err != nil {
		s.metrics.RecordOutboundDocument("pdf", "error")
		AbortWithError(c, err)
		return
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		s.metrics.RecordOutboundDocument("pdf", "error")
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordOutboundDocument("pdf", "ok")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}

func (s *Server) SendRcti(c *gin.Context) {
	doc, filename, err := s.buildRctiDocument(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if doc.DriverEmail == "" {
		AbortWithError(c, newValidationError("driver", "missing_email", "driver has no email address"))
		return
	}

	reader, err := s.pdfRenderer.RenderRcti(c.Request.Context(), doc)
	if err != nil {
		s.metrics.RecordOutboundDocument("email", "error")
		AbortWithError(c, err)
		return
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		s.metrics.RecordOutboundDocument("email", "error")
		AbortWithError(c, err)
		return
	}

	subject := fmt.Sprintf("RCTI %s for week ending %s", doc.RctiNumber, doc.WeekEnding)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Please find attached your recipient created tax invoice for the week ending %s.</p><p>Amount payable: %s</p>",
		doc.DriverName, doc.WeekEnding, doc.AmountPayable,
	)

	err = s.emailSvc.Send(c.Request.Context(), []string{doc.DriverEmail}, subject, body, email.Attachment{
		Filename:    filename,
		ContentType: "application/pdf",
		Data:        data,
	})
	if err != nil {
		s.metrics.RecordOutboundDocument("email", "error")
		AbortWithError(c, err)
		return
	}

	s.metrics.RecordOutboundDocument("email", "ok")
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"sent_to": doc.DriverEmail}})
}

func (s *Server) bindLineInput(c *gin.Context) (rctidomain.LineInput, bool) {
	var req rctiLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return rctidomain.LineInput{}, false
	}

	jobDate, err := parseDate(req.JobDate)
	if err != nil {
		AbortWithError(c, newValidationError("job_date", "invalid_date", "expected YYYY-MM-DD"))
		return rctidomain.LineInput{}, false
	}

	return rctidomain.LineInput{
		JobDate:      jobDate,
		Customer:     req.Customer,
		TruckType:    req.TruckType,
		Description:  req.Description,
		ChargedHours: req.ChargedHours,
		RatePerHour:  req.RatePerHour,
	}, true
}

// buildRctiDocument assembles the render model for the PDF from the
// invoice detail, the driver record and the applied adjustments.
func (s *Server) buildRctiDocument(c *gin.Context) (pdf.RctiDocument, string, error) {
	detail, err := s.rctiSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return pdf.RctiDocument{}, "", err
	}

	driver, err := s.driverSvc.GetByID(c.Request.Context(), detail.Rcti.DriverID.String())
	if err != nil {
		return pdf.RctiDocument{}, "", err
	}

	doc := pdf.RctiDocument{
		BusinessName:  s.cfg.AppName,
		DriverName:    driver.Name,
		DriverEmail:   driver.Email,
		RctiNumber:    detail.Rcti.ID.String(),
		WeekEnding:    detail.Rcti.WeekEnding.Format("2006-01-02"),
		GstStatus:     string(detail.Rcti.GstStatus),
		Status:        string(detail.Rcti.Status),
		Subtotal:      formatMoney(detail.Rcti.Subtotal),
		Gst:           formatMoney(detail.Rcti.Gst),
		OriginalTotal: formatMoney(detail.OriginalTotal),
		AmountPayable: formatMoney(detail.Rcti.Total),
	}

	for _, line := range detail.Lines {
		doc.Lines = append(doc.Lines, pdf.RctiDocumentLine{
			JobDate:     line.JobDate.Format("2006-01-02"),
			Customer:    line.Customer,
			TruckType:   line.TruckType,
			Description: line.Description,
			Hours:       line.ChargedHours.StringFixed(2),
			Rate:        formatMoney(line.RatePerHour),
			Amount:      formatMoney(line.AmountIncGst),
		})
	}

	for _, app := range detail.Applications {
		if app.IsSkip() {
			continue
		}
		deduction, err := s.deductionSvc.GetByID(c.Request.Context(), app.DeductionID.String())
		if err != nil {
			return pdf.RctiDocument{}, "", err
		}
		amount := app.Amount.Neg()
		if deduction.Kind == deductiondomain.KindReimbursement {
			amount = app.Amount
		}
		doc.Adjustments = append(doc.Adjustments, pdf.AdjustmentLine{
			Description: deduction.Description,
			Amount:      formatMoney(amount),
		})
	}

	filename := fmt.Sprintf("rcti-%s-%s.pdf", detail.Rcti.ID.String(), doc.WeekEnding)
	return doc, filename, nil
}

func formatMoney(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + d.Abs().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
