package tracing

import (
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
)

// InitNewRelic initializes the New Relic application. A nil application is
// returned when tracing is disabled or unlicensed; callers treat that as
// "no tracing" rather than an error.
func InitNewRelic(cfg *config.NewRelicConfig) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		logrus.Warn("New Relic disabled or license key not provided, tracing is off")
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize New Relic")
	}

	return app, nil
}
