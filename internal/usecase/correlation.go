package usecase

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewCorrelationRef generates the locally assigned correlation reference sent
// to providers that echo our id back in their callback (Airtel). ULIDs are
// time-ordered and collision-safe across processes, which keeps the ledger's
// per-provider uniqueness constraint honest without coordination.
func NewCorrelationRef() string {
	return "DSP" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
