package drawer

import (
	"testing"
	"time"

	"smartfix/backend/internal/domain"
)

func TestSetNotifiesSubscribers(t *testing.T) {
	watch := NewWatch()

	var seen []bool
	unsub := watch.Subscribe(func(st domain.DrawerStatus) {
		seen = append(seen, st.IsOpen)
	})

	watch.Set(domain.DrawerStatus{IsOpen: true, CheckedAt: time.Now().UTC()})
	unsub()
	watch.Set(domain.DrawerStatus{IsOpen: false, CheckedAt: time.Now().UTC()})

	if len(seen) != 1 || !seen[0] {
		t.Fatalf("expected one open notification, got %v", seen)
	}
	if watch.Snapshot().IsOpen {
		t.Fatalf("snapshot should reflect the last Set")
	}
}
