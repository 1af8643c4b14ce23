// ABOUTME: Cache for the text of the currently associated page
// ABOUTME: The host pushes extracted page text here; sessions read it when grounding requests

package content

import (
	"context"
	"errors"
	"sync"
)

// ErrNoPageText indicates no page text has been provided yet.
var ErrNoPageText = errors.New("no page text available")

// PageCache holds the extracted text of the active page. Safe for concurrent
// use. There is one active page at a time; pushing new text replaces the old.
type PageCache struct {
	mu   sync.RWMutex
	text string
}

// NewPageCache creates an empty page cache.
func NewPageCache() *PageCache {
	return &PageCache{}
}

// SetText replaces the cached page text. Empty text clears the cache.
func (p *PageCache) SetText(text string) {
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
}

// PageText returns the cached text, or ErrNoPageText when nothing has been
// pushed.
func (p *PageCache) PageText(ctx context.Context) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.text == "" {
		return "", ErrNoPageText
	}
	return p.text, nil
}
