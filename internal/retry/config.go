package retry

import (
	"log/slog"

	"oktabot/internal/config"
	"oktabot/internal/errclass"
)

// PoliciesFromConfig converts the [retry.*] sections.
func PoliciesFromConfig(cfg config.Retry) Policies {
	convert := func(p config.RetryPolicy) Policy {
		return Policy{MaxRetries: p.MaxRetries, BaseDelay: p.BaseDelay(), Exponential: p.ExponentialBackoff}
	}
	return Policies{
		errclass.Quota:   convert(cfg.Quota),
		errclass.Network: convert(cfg.Network),
		errclass.Disk:    convert(cfg.Disk),
		errclass.System:  convert(cfg.System),
	}
}

// ClassifierFromConfig builds the error classifier from [classifier].
func ClassifierFromConfig(cfg config.Classifier) *errclass.Classifier {
	return errclass.New(errclass.Keywords{
		Quota:   cfg.QuotaKeywords,
		Network: cfg.NetworkKeywords,
		Disk:    cfg.DiskKeywords,
		System:  cfg.SystemKeywords,
	})
}

// NewFromConfig builds a handler from the retry and classifier sections.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, opts ...Option) *Handler {
	opts = append([]Option{WithLogger(logger)}, opts...)
	return NewHandler(ClassifierFromConfig(cfg.Classifier), PoliciesFromConfig(cfg.Retry), opts...)
}
