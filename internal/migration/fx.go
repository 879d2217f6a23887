package migration

import (
	auditdomain "github.com/bldragon101/worklog/internal/audit/domain"
	"github.com/bldragon101/worklog/internal/config"
	deductiondomain "github.com/bldragon101/worklog/internal/deduction/domain"
	driverdomain "github.com/bldragon101/worklog/internal/driver/domain"
	jobdomain "github.com/bldragon101/worklog/internal/job/domain"
	rctidomain "github.com/bldragon101/worklog/internal/rcti/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// golang-migrate targets postgres; sqlite and mysql dev setups
		// fall back to gorm's schema sync.
		return conn.AutoMigrate(
			&driverdomain.Driver{},
			&jobdomain.Job{},
			&rctidomain.Rcti{},
			&rctidomain.RctiLine{},
			&deductiondomain.Deduction{},
			&deductiondomain.DeductionApplication{},
			&auditdomain.AuditLog{},
		)
	}),
)
