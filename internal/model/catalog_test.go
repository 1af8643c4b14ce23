// ABOUTME: Tests for the model catalog
// ABOUTME: Verifies tier filtering, atomic replacement, and access checks

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModels() []*Model {
	return []*Model{
		{Key: "swift", Hosted: &HostedOptions{Name: "Swift", Maker: "2389", Tier: TierBasicAndPremium}},
		{Key: "sage", Hosted: &HostedOptions{Name: "Sage", Maker: "2389", Tier: TierPremium}},
		{Key: "scout", Hosted: &HostedOptions{Name: "Scout", Maker: "2389", Tier: TierBasic}},
		{Key: "local", Custom: &CustomOptions{RequestName: "llama3", Endpoint: "http://localhost:8080"}},
	}
}

func TestCatalog_ResolveAccessible(t *testing.T) {
	c := NewCatalog(testModels(), nil)

	tests := []struct {
		name  string
		state PremiumState
		keys  []string
	}{
		{"unknown excludes premium", PremiumUnknown, []string{"swift", "scout", "local"}},
		{"inactive excludes premium", PremiumInactive, []string{"swift", "scout", "local"}},
		{"active sees everything", PremiumActive, []string{"swift", "sage", "scout", "local"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			models := c.ResolveAccessible(tt.state)
			keys := make([]string, len(models))
			for i, m := range models {
				keys[i] = m.Key
			}
			assert.Equal(t, tt.keys, keys, "order must match catalog order")
		})
	}
}

func TestCatalog_CheckAccess(t *testing.T) {
	c := NewCatalog(testModels(), nil)

	assert.NoError(t, c.CheckAccess("scout", PremiumUnknown))
	assert.ErrorIs(t, c.CheckAccess("sage", PremiumInactive), ErrTierRestricted)
	assert.ErrorIs(t, c.CheckAccess("sage", PremiumUnknown), ErrTierRestricted)
	assert.NoError(t, c.CheckAccess("sage", PremiumActive))
	assert.ErrorIs(t, c.CheckAccess("nonexistent", PremiumActive), ErrModelNotFound)
}

func TestCatalog_ReplaceIsAtomic(t *testing.T) {
	c := NewCatalog(testModels(), nil)

	before := c.ResolveAccessible(PremiumActive)
	require.Len(t, before, 4)

	c.Replace([]*Model{
		{Key: "swift", Hosted: &HostedOptions{Name: "Swift v2", Tier: TierBasic}},
	})

	// The old slice returned to the reader is untouched by the swap.
	assert.Len(t, before, 4)
	assert.Equal(t, "Sage", before[1].Hosted.Name)

	after := c.All()
	require.Len(t, after, 1)
	assert.Equal(t, "Swift v2", after[0].Hosted.Name)
}

func TestCatalog_ReplaceSkipsDuplicatesAndEmptyKeys(t *testing.T) {
	c := NewCatalog([]*Model{
		{Key: "a", Hosted: &HostedOptions{Name: "A"}},
		{Key: "a", Hosted: &HostedOptions{Name: "A duplicate"}},
		{Key: "", Hosted: &HostedOptions{Name: "keyless"}},
		nil,
	}, nil)

	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].Hosted.Name)
}

func TestModel_CustomAlwaysAccessible(t *testing.T) {
	m := &Model{Key: "local", Custom: &CustomOptions{RequestName: "llama3"}}
	assert.True(t, m.IsCustom())
	assert.True(t, m.Accessible(PremiumUnknown))
	assert.True(t, m.Accessible(PremiumInactive))
}
