package driving

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// HealthService reports node readiness.
type HealthService interface {
	// Check returns the current health report.
	Check(ctx context.Context) *domain.HealthReport
}
