package indirectx

import (
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Settings are the host options that can be kept in a YAML file:
//
//	log_level: debug
//	timing: true
//	metrics_namespace: myapp
type Settings struct {
	LogLevel         string `yaml:"log_level"`
	Timing           bool   `yaml:"timing"`
	MetricsNamespace string `yaml:"metrics_namespace"`
}

// LoadSettings reads Settings from YAML. An empty document yields zero
// settings.
func LoadSettings(r io.Reader) (*Settings, error) {
	s := &Settings{}
	if err := yaml.NewDecoder(r).Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to load host settings: %w", err)
	}
	return s, nil
}

// Options turns the settings into host options. Metrics are only enabled when
// both a namespace is set and reg is not nil.
func (s *Settings) Options(reg prometheus.Registerer) ([]HostOption, error) {
	var opts []HostOption

	if s.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(s.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log_level %q: %w", s.LogLevel, err)
		}
		cfg := zap.NewProductionConfig()
		cfg.Level = level
		logger, err := cfg.Build()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLogger(logger.Named("indirectx")))
	}

	if s.Timing {
		opts = append(opts, WithTiming())
	}

	if s.MetricsNamespace != "" && reg != nil {
		opts = append(opts, WithMetrics(reg, s.MetricsNamespace))
	}

	return opts, nil
}
