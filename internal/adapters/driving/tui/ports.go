// Package tui provides an interactive terminal user interface for asking
// grounded questions. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Answer answers questions.
	Answer driving.AnswerService

	// Tenant is the corpus every question is asked against.
	Tenant domain.TenantID
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return p.Tenant.Validate()
}
