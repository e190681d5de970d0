package webhooks

import (
	"context"
	"testing"
	"time"
)

func TestWindowDeliveryGuard_ClaimsOncePerWindow(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	guard := NewDeliveryGuard(DeliveryGuardOptions{
		Window: time.Minute,
		Now:    func() time.Time { return now },
	})
	ctx := context.Background()

	first, _ := guard.Claim(ctx, "delivery-1")
	second, _ := guard.Claim(ctx, "delivery-1")
	if !first || second {
		t.Fatalf("expected first claim only, got %v/%v", first, second)
	}

	now = now.Add(2 * time.Minute)
	third, _ := guard.Claim(ctx, "delivery-1")
	if !third {
		t.Fatalf("expected claim after the window elapsed")
	}
}

func TestWindowDeliveryGuard_EvictsOldestOverCapacity(t *testing.T) {
	now := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	guard := NewDeliveryGuard(DeliveryGuardOptions{
		Window:     time.Hour,
		MaxEntries: 2,
		Now: func() time.Time {
			now = now.Add(time.Second)
			return now
		},
	})
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if ok, _ := guard.Claim(ctx, id); !ok {
			t.Fatalf("expected %s to be claimed", id)
		}
	}
	if guard.Len() != 2 {
		t.Fatalf("expected capacity to hold, got %d", guard.Len())
	}
	if ok, _ := guard.Claim(ctx, "a"); !ok {
		t.Fatalf("expected evicted id to be claimable again")
	}
}

func TestWindowDeliveryGuard_EmptyIDAlwaysClaims(t *testing.T) {
	guard := NewDeliveryGuard(DeliveryGuardOptions{})
	for i := 0; i < 2; i++ {
		if ok, _ := guard.Claim(context.Background(), " "); !ok {
			t.Fatalf("expected empty id to pass")
		}
	}
}
