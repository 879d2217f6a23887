package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// PayrollConfig carries the payroll rules that operators tune without a
// redeploy: the flat GST rate and the reserved customer marker that tags
// synthetic unpaid-break lines.
type PayrollConfig struct {
	GSTRate          string `mapstructure:"gstRate"`
	BreakLineMarker  string `mapstructure:"breakLineMarker"`
	DefaultBreakHour string `mapstructure:"defaultBreakHours"`
}

func DefaultPayrollConfig() PayrollConfig {
	return PayrollConfig{
		GSTRate:          "0.10",
		BreakLineMarker:  "Unpaid Breaks",
		DefaultBreakHour: "0.5",
	}
}

// PayrollConfigHolder exposes the current payroll config and hot-reloads
// it when payroll.yml changes on disk.
type PayrollConfigHolder struct {
	current atomic.Value // holds PayrollConfig
}

func NewPayrollConfigHolder() (*PayrollConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("payroll")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/worklog")
	v.AddConfigPath(".")

	v.SetEnvPrefix("WORKLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPayrollConfig()
	v.SetDefault("payroll.gstRate", defaults.GSTRate)
	v.SetDefault("payroll.breakLineMarker", defaults.BreakLineMarker)
	v.SetDefault("payroll.defaultBreakHours", defaults.DefaultBreakHour)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg PayrollConfig
	if err := v.UnmarshalKey("payroll", &cfg); err != nil {
		return nil, err
	}
	if err := validatePayrollConfig(cfg); err != nil {
		return nil, err
	}

	holder := &PayrollConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PayrollConfig
		if err := v.UnmarshalKey("payroll", &updated); err != nil {
			log.Printf("[payroll-config] reload failed: %v", err)
			return
		}
		if err := validatePayrollConfig(updated); err != nil {
			log.Printf("[payroll-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[payroll-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PayrollConfigHolder) Current() PayrollConfig {
	return h.current.Load().(PayrollConfig)
}

// GSTRate returns the configured flat GST rate as an exact decimal.
func (h *PayrollConfigHolder) GSTRate() decimal.Decimal {
	rate, err := decimal.NewFromString(h.Current().GSTRate)
	if err != nil {
		return decimal.RequireFromString(DefaultPayrollConfig().GSTRate)
	}
	return rate
}

func (h *PayrollConfigHolder) BreakLineMarker() string {
	marker := strings.TrimSpace(h.Current().BreakLineMarker)
	if marker == "" {
		return DefaultPayrollConfig().BreakLineMarker
	}
	return marker
}

func validatePayrollConfig(cfg PayrollConfig) error {
	rate, err := decimal.NewFromString(strings.TrimSpace(cfg.GSTRate))
	if err != nil {
		return errors.New("payroll.gstRate must be a decimal fraction")
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("payroll.gstRate must be between 0 and 1")
	}
	if hours := strings.TrimSpace(cfg.DefaultBreakHour); hours != "" {
		parsed, err := decimal.NewFromString(hours)
		if err != nil || parsed.IsNegative() {
			return errors.New("payroll.defaultBreakHours must be a non-negative decimal")
		}
	}
	return nil
}
