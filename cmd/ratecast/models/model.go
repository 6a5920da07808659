// Package models builds the configured regressor for a run.
package models

import (
	"fmt"
	"log/slog"

	"github.com/HatiCode/ratecast/cmd/ratecast/config"
	"github.com/HatiCode/ratecast/pkg/httpx"
	"github.com/HatiCode/ratecast/pkg/models"
)

// New returns a fresh, unfitted model for cfg.Model. Every model is wrapped
// in a models.Pipeline so inputs are sanitized and scaled the same way.
// Each call returns an independent instance.
func New(cfg *config.Config, logger *slog.Logger) (models.Regressor, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Model {
	case config.ModelBaseline:
		logger.Debug("initializing baseline model")
		return models.NewPipeline(models.NewMeanBaseline()), nil

	case config.ModelLinear:
		logger.Debug("initializing linear model", "ridge", cfg.Ridge)
		return models.NewPipeline(models.NewLinearRegressor(cfg.Ridge)), nil

	case config.ModelBYOM:
		client, err := httpx.NewClient(cfg.TLS, cfg.BYOMTimeout)
		if err != nil {
			return nil, fmt.Errorf("byom client: %w", err)
		}
		logger.Debug("initializing byom model",
			"url", cfg.BYOMURL,
			"tls", cfg.TLS.Enabled,
			"timeout", cfg.BYOMTimeout,
		)
		return models.NewPipeline(models.NewBYOMRegressor(cfg.BYOMURL, client)), nil

	default:
		return nil, fmt.Errorf("invalid model type %q", cfg.Model)
	}
}
