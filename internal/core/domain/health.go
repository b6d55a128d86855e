package domain

// HealthStatus summarises node readiness.
type HealthStatus string

// Health statuses.
const (
	HealthOK       HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
)

// HealthReport describes which parts of the node are usable.
// It never includes key material.
type HealthReport struct {
	Status    HealthStatus    `json:"status"`
	Version   string          `json:"version,omitempty"`
	Signer    string          `json:"signer,omitempty"`
	BlobStore string          `json:"blob_store"`
	Tracker   string          `json:"tracker"`
	Ledger    bool            `json:"ledger_configured"`
	Backends  []BackendStatus `json:"backends"`
	Problems  []string        `json:"problems,omitempty"`
}
