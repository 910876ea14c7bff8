package wizard

import "sync/atomic"

// ConfirmGuard serializes finalization. However many confirm requests race,
// at most one creation call is in flight, and once creation succeeded later
// attempts are rejected by the wizard before reaching the backend.
type ConfirmGuard struct {
	inFlight atomic.Bool
}

// TryAcquire claims the guard. It returns false while another confirm holds
// it.
func (g *ConfirmGuard) TryAcquire() bool {
	return g.inFlight.CompareAndSwap(false, true)
}

func (g *ConfirmGuard) Release() {
	g.inFlight.Store(false)
}
