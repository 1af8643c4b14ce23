// ABOUTME: Throttled premium entitlement cache shared by all sessions
// ABOUTME: Refresh happens off the caller's path; metadata queries never block on the network

package registry

import (
	"context"
	"time"

	"github.com/2389/coven-assist/internal/hub"
	"github.com/2389/coven-assist/internal/model"
)

// PremiumStatus is the cached entitlement snapshot handed to callers by
// value, so tests can substitute arbitrary states deterministically.
type PremiumStatus struct {
	State     model.PremiumState
	Info      *PremiumInfo
	FetchedAt time.Time
}

// GetPremiumStatus returns the cached status. When the cache is stale a
// background refresh is kicked off; the caller always gets an immediate
// answer, Unknown until the first refresh lands.
func (r *Registry) GetPremiumStatus() PremiumStatus {
	r.premiumMu.Lock()
	status := PremiumStatus{
		State:     r.premiumState,
		Info:      r.premiumInfo,
		FetchedAt: r.premiumFetched,
	}
	stale := time.Since(r.premiumFetched) >= r.opts.PremiumRefresh
	start := stale && !r.refreshing && r.opts.Premium != nil
	if start {
		r.refreshing = true
	}
	r.premiumMu.Unlock()

	if start {
		go r.refreshPremium()
	}
	return status
}

// PremiumState returns just the cached entitlement state. Used by sessions
// for model gating.
func (r *Registry) PremiumState() model.PremiumState {
	return r.GetPremiumStatus().State
}

func (r *Registry) refreshPremium() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	state, info, err := r.opts.Premium.CheckPremiumStatus(ctx)

	r.premiumMu.Lock()
	r.refreshing = false
	if err != nil {
		// Keep the previous snapshot; a failed refresh is not a downgrade.
		r.premiumMu.Unlock()
		r.logger.Warn("premium status refresh failed", "error", err)
		return
	}
	changed := r.premiumState != state
	r.premiumState = state
	r.premiumInfo = info
	r.premiumFetched = time.Now()
	r.premiumMu.Unlock()

	r.logger.Debug("premium status refreshed", "state", state.String())
	if changed {
		// Model accessibility depends on entitlement, so observers need to
		// re-query their model lists.
		r.publishGlobal(hub.KindModelDataChanged, nil)
	}
}
