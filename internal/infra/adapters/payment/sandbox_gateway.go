package payment

import (
	"context"

	"dating-subscription-payments/internal/domain/model"
	"dating-subscription-payments/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*SandboxGateway)(nil)

// SandboxGateway stands in for a provider whose credentials are not
// configured. It accepts every collection request without touching the
// network, so local and staging environments can exercise the whole
// initiation path. No callback ever arrives for a sandbox acceptance, which
// leaves the transaction pending.
type SandboxGateway struct {
	provider model.Provider
}

func NewSandboxGateway(provider model.Provider) *SandboxGateway {
	return &SandboxGateway{provider: provider}
}

func (g *SandboxGateway) Provider() model.Provider { return g.provider }

func (g *SandboxGateway) NormalizePhone(raw string) (string, error) {
	return normalizeKenyanMSISDN(raw)
}

func (g *SandboxGateway) Collect(ctx context.Context, req adapter.CollectRequest) (adapter.CollectResult, error) {
	return adapter.CollectResult{
		CorrelationID: "demo_" + req.Reference,
		Metadata:      map[string]any{"sandbox": true},
		Sandbox:       true,
	}, nil
}
