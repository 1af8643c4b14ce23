// ABOUTME: Model definitions and access-tier types for the assistant engine catalog
// ABOUTME: A Model is either a hosted engine entry or a user-provided custom endpoint

package model

import "errors"

// ErrModelNotFound is returned when a model key has no catalog entry.
var ErrModelNotFound = errors.New("model not found")

// ErrTierRestricted is returned when a model requires a higher entitlement
// than the caller currently holds.
var ErrTierRestricted = errors.New("model restricted to premium entitlement")

// AccessTier gates which entitlement levels may select a model.
type AccessTier int

const (
	TierBasic AccessTier = iota
	TierBasicAndPremium
	TierPremium
)

// String returns the tier name used in logs and persistence.
func (t AccessTier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierBasicAndPremium:
		return "basic_and_premium"
	case TierPremium:
		return "premium"
	default:
		return "unknown"
	}
}

// PremiumState is the caller's current premium entitlement.
type PremiumState int

const (
	PremiumUnknown PremiumState = iota
	PremiumInactive
	PremiumActive
)

// String returns the state name used in logs.
func (s PremiumState) String() string {
	switch s {
	case PremiumInactive:
		return "inactive"
	case PremiumActive:
		return "active"
	default:
		return "unknown"
	}
}

// Category groups models for display purposes.
type Category int

const (
	CategoryChat Category = iota
	CategorySkill
)

// HostedOptions describes a model served by a remote engine we operate.
type HostedOptions struct {
	Name              string
	Maker             string
	EngineKey         string
	Category          Category
	Tier              AccessTier
	MaxContentLength  int
	LongConvThreshold int
}

// CustomOptions describes a user-configured endpoint (e.g. a local runner).
type CustomOptions struct {
	RequestName string
	Endpoint    string
	APIKey      string
}

// Model is a catalog entry. Exactly one of Hosted or Custom is set; Key
// identifies the model process-wide and in persistence.
type Model struct {
	Key    string
	Hosted *HostedOptions
	Custom *CustomOptions
}

// IsCustom reports whether this entry is a user-configured endpoint.
func (m *Model) IsCustom() bool {
	return m.Custom != nil
}

// Tier returns the access tier for the model. Custom models are always
// reachable: the user supplied the endpoint themselves.
func (m *Model) Tier() AccessTier {
	if m.Hosted != nil {
		return m.Hosted.Tier
	}
	return TierBasic
}

// Accessible reports whether the model may be selected under the given
// entitlement. Premium-only models require an active premium state; Unknown
// is treated as not entitled.
func (m *Model) Accessible(state PremiumState) bool {
	switch m.Tier() {
	case TierBasic, TierBasicAndPremium:
		return true
	case TierPremium:
		return state == PremiumActive
	default:
		return false
	}
}
