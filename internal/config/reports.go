package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AgingBucket labels a range of days an invoice has been outstanding.
type AgingBucket struct {
	Label   string `mapstructure:"label"`
	MinDays int    `mapstructure:"minDays"`
	MaxDays *int   `mapstructure:"maxDays"` // nil = open ended
}

// ReportConfig tunes the analytics report groupings.
type ReportConfig struct {
	AgingBuckets []AgingBucket `mapstructure:"agingBuckets"`
}

func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		AgingBuckets: []AgingBucket{
			{Label: "0-30", MinDays: 0, MaxDays: intPtr(30)},
			{Label: "31-60", MinDays: 31, MaxDays: intPtr(60)},
			{Label: "60+", MinDays: 61, MaxDays: nil},
		},
	}
}

func intPtr(v int) *int { return &v }

// ReportConfigHolder exposes the current report config and hot-reloads it
// when the backing file changes.
type ReportConfigHolder struct {
	current atomic.Value // holds ReportConfig
}

func NewReportConfigHolder() (*ReportConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("reports")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/owlbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("OWLBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultReportConfig()
		v.SetDefault("reports.agingBuckets", defaults.AgingBuckets)
	}

	var cfg ReportConfig
	if err := v.UnmarshalKey("reports", &cfg); err != nil {
		return nil, err
	}
	if err := validateReportConfig(cfg); err != nil {
		return nil, err
	}

	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	// The holder is constructed before the fx logger, but change events only
	// fire after startup, by which point the zap globals are installed.
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated ReportConfig
		if err := v.UnmarshalKey("reports", &updated); err != nil {
			zap.L().Warn("report config reload failed", zap.Error(err))
			return
		}
		if err := validateReportConfig(updated); err != nil {
			zap.L().Warn("report config invalid, keeping previous", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("report config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// NewStaticReportConfigHolder wraps a fixed config with no file watching.
func NewStaticReportConfigHolder(cfg ReportConfig) *ReportConfigHolder {
	holder := &ReportConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *ReportConfigHolder) Get() ReportConfig {
	return h.current.Load().(ReportConfig)
}

func validateReportConfig(cfg ReportConfig) error {
	if len(cfg.AgingBuckets) == 0 {
		return errors.New("reports.agingBuckets cannot be empty")
	}
	return nil
}
