package services

import (
	"context"
	"slices"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

// HealthConfig describes the wired node for health reporting.
type HealthConfig struct {
	Version          string
	Signer           string
	BlobStore        string
	Tracker          string
	LedgerConfigured bool
}

// HealthService reports which parts of the node are usable. It never includes
// credentials or key material in its report.
type HealthService struct {
	cfg       HealthConfig
	generator driving.AnswerGenerator
}

// NewHealthService creates a health service. generator may be nil when no
// backends were built.
func NewHealthService(cfg HealthConfig, generator driving.AnswerGenerator) *HealthService {
	return &HealthService{cfg: cfg, generator: generator}
}

// Check implements driving.HealthService.
func (s *HealthService) Check(_ context.Context) *domain.HealthReport {
	report := &domain.HealthReport{
		Status:    domain.HealthOK,
		Version:   s.cfg.Version,
		Signer:    s.cfg.Signer,
		BlobStore: s.cfg.BlobStore,
		Tracker:   s.cfg.Tracker,
		Ledger:    s.cfg.LedgerConfigured,
		Backends:  []domain.BackendStatus{},
	}
	if s.generator != nil {
		report.Backends = s.generator.Health()
	}

	if !slices.ContainsFunc(report.Backends, func(b domain.BackendStatus) bool { return b.Configured }) {
		report.Problems = append(report.Problems, domain.ErrNoBackends.Error())
	}
	if report.Signer == "" {
		report.Problems = append(report.Problems, "oracle signing key not configured")
	}
	if !report.Ledger {
		report.Problems = append(report.Problems, "ledger package or config object not configured")
	}
	if len(report.Problems) > 0 {
		report.Status = domain.HealthDegraded
	}
	return report
}
