package webhooks

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DeliveryGuard suppresses redeliveries of the same webhook id. Claim
// returns false when the id was already claimed; Release forgets it so a
// later retry is dispatched again.
type DeliveryGuard interface {
	Claim(ctx context.Context, webhookID string) (bool, error)
	Release(ctx context.Context, webhookID string) error
}

type DeliveryGuardOptions struct {
	Window     time.Duration
	MaxEntries int
	Now        func() time.Time
}

// WindowDeliveryGuard remembers claimed ids in memory for a fixed window.
type WindowDeliveryGuard struct {
	window     time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time
}

func NewDeliveryGuard(opts DeliveryGuardOptions) *WindowDeliveryGuard {
	window := opts.Window
	if window <= 0 {
		window = 10 * time.Minute
	}
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = 4096
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &WindowDeliveryGuard{
		window:     window,
		maxEntries: maxEntries,
		now:        now,
		entries:    map[string]time.Time{},
	}
}

func (g *WindowDeliveryGuard) Claim(_ context.Context, webhookID string) (bool, error) {
	webhookID = strings.TrimSpace(webhookID)
	if g == nil || webhookID == "" {
		return true, nil
	}
	now := g.now().UTC()
	g.mu.Lock()
	defer g.mu.Unlock()

	seenAt, exists := g.entries[webhookID]
	if exists && now.Sub(seenAt) < g.window {
		return false, nil
	}
	g.entries[webhookID] = now
	g.cleanup(now)
	return true, nil
}

func (g *WindowDeliveryGuard) Release(_ context.Context, webhookID string) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, strings.TrimSpace(webhookID))
	return nil
}

func (g *WindowDeliveryGuard) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *WindowDeliveryGuard) cleanup(now time.Time) {
	for key, seenAt := range g.entries {
		if now.Sub(seenAt) >= g.window {
			delete(g.entries, key)
		}
	}
	if len(g.entries) <= g.maxEntries {
		return
	}
	// Still over capacity: drop the oldest entries.
	for len(g.entries) > g.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for key, seenAt := range g.entries {
			if oldestKey == "" || seenAt.Before(oldest) {
				oldestKey, oldest = key, seenAt
			}
		}
		delete(g.entries, oldestKey)
	}
}

var _ DeliveryGuard = (*WindowDeliveryGuard)(nil)
