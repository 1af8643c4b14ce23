// ABOUTME: Tracks the page-derived context associated with a conversation session
// ABOUTME: SiteInfo snapshots are replaced whole; changes notify observers independently of chat activity

package content

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrPercentageOutOfRange is returned when a SiteInfo reports content usage
// outside [0, 100].
var ErrPercentageOutOfRange = errors.New("content used percentage out of range")

// SiteInfo describes the page a session may attach to outgoing requests.
// Title and HostURL are empty while the page is still being fetched.
type SiteInfo struct {
	Title               string
	HostURL             string
	AssociationPossible bool
	ContentUsedPercent  int
	IsContentRefined    bool
}

// Resolved reports whether the page context has finished loading. A fetching
// page has neither title nor host yet.
func (s SiteInfo) Resolved() bool {
	return s.Title != "" || s.HostURL != ""
}

// Tracker holds the current SiteInfo for one session. Updates replace the
// whole snapshot; there are no partial field updates. Page navigation is
// independent of chat activity, so changes fire their own notification.
type Tracker struct {
	mu       sync.RWMutex
	current  SiteInfo
	onChange func(SiteInfo)
	logger   *slog.Logger
}

// NewTracker creates a tracker. onChange, if non-nil, is invoked after every
// accepted update with the new snapshot. Pass nil logger for default.
func NewTracker(onChange func(SiteInfo), logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		onChange: onChange,
		logger:   logger.With("component", "content"),
	}
}

// Update replaces the current snapshot. A content-used percentage outside
// [0, 100] is a data-contract violation and is rejected.
func (t *Tracker) Update(info SiteInfo) error {
	if info.ContentUsedPercent < 0 || info.ContentUsedPercent > 100 {
		t.logger.Warn("rejected site info with invalid percentage",
			"percent", info.ContentUsedPercent,
			"host", info.HostURL)
		return ErrPercentageOutOfRange
	}

	t.mu.Lock()
	changed := t.current != info
	t.current = info
	t.mu.Unlock()

	if changed {
		t.logger.Debug("associated content updated",
			"host", info.HostURL,
			"resolved", info.Resolved(),
			"percent", info.ContentUsedPercent)
		if t.onChange != nil {
			t.onChange(info)
		}
	}
	return nil
}

// Current returns the latest snapshot.
func (t *Tracker) Current() SiteInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}
