package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bldragon101/worklog/internal/audit"
	auditdomain "github.com/bldragon101/worklog/internal/audit/domain"
	"github.com/bldragon101/worklog/internal/config"
	"github.com/bldragon101/worklog/internal/deduction"
	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	"github.com/bldragon101/worklog/internal/driver"
	driverdomain "github.com/bldragon101/worklog/internal/driver/domain"
	"github.com/bldragon101/worklog/internal/job"
	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	"github.com/bldragon101/worklog/internal/providers"
	"github.com/bldragon101/worklog/internal/providers/email"
	"github.com/bldragon101/worklog/internal/providers/pdf"
	"github.com/bldragon101/worklog/internal/rcti"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"github.com/bldragon101/worklog/pkg/telemetry"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	telemetry.Module,
	audit.Module,
	providers.Module,
	driver.Module,
	job.Module,
	deduction.Module,
	rcti.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(metrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *telemetry.Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	named := log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		named.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	payroll      *config.PayrollConfigHolder
	driverSvc    driverdomain.Service
	jobSvc       jobdomain.Service
	rctiSvc      rctidomain.Service
	deductionSvc deductiondomain.Service
	auditSvc     auditdomain.Service
	pdfRenderer  pdf.Renderer
	emailSvc     email.Provider
	metrics      *telemetry.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Payroll      *config.PayrollConfigHolder
	DriverSvc    driverdomain.Service
	JobSvc       jobdomain.Service
	RctiSvc      rctidomain.Service
	DeductionSvc deductiondomain.Service
	AuditSvc     auditdomain.Service
	PdfRenderer  pdf.Renderer
	EmailSvc     email.Provider
	Metrics      *telemetry.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		payroll:      p.Payroll,
		driverSvc:    p.DriverSvc,
		jobSvc:       p.JobSvc,
		rctiSvc:      p.RctiSvc,
		deductionSvc: p.DeductionSvc,
		auditSvc:     p.AuditSvc,
		pdfRenderer:  p.PdfRenderer,
		emailSvc:     p.EmailSvc,
		metrics:      p.Metrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Drivers --------
	api.GET("/drivers", s.ListDrivers)
	api.POST("/drivers", s.CreateDriver)
	api.GET("/drivers/:id", s.GetDriverByID)
	api.PATCH("/drivers/:id", s.UpdateDriver)
	api.GET("/drivers/:id/deductions/pending", s.ListPendingDeductions)

	// -------- Jobs --------
	api.GET("/jobs", s.ListJobs)
	api.POST("/jobs", s.IngestJob)

	// -------- RCTIs --------
	api.GET("/rctis", s.ListRctis)
	api.POST("/rctis", s.CreateRcti)
	api.GET("/rctis/:id", s.GetRctiByID)
	api.POST("/rctis/:id/lines", s.AddRctiLine)
	api.PATCH("/rctis/:id/lines/:lineId", s.UpdateRctiLine)
	api.DELETE("/rctis/:id/lines/:lineId", s.DeleteRctiLine)
	api.PATCH("/rctis/:id/gst", s.UpdateRctiGst)
	api.POST("/rctis/:id/finalise", s.FinaliseRcti)
	api.POST("/rctis/:id/revert", s.RevertRcti)
	api.POST("/rctis/:id/pay", s.MarkRctiPaid)
	api.GET("/rctis/:id/pdf", s.DownloadRctiPdf)
	api.POST("/rctis/:id/send", s.SendRcti)

	// -------- Deductions --------
	api.GET("/deductions", s.ListDeductions)
	api.POST("/deductions", s.CreateDeduction)
	api.GET("/deductions/:id", s.GetDeductionByID)
	api.PATCH("/deductions/:id", s.UpdateDeduction)
	api.DELETE("/deductions/:id", s.DeleteDeduction)
	api.POST("/deductions/:id/cancel", s.CancelDeduction)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}
