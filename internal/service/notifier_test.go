package service

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/cursor"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
)

// --- Mocks ---

type mockNotifierStore struct {
	maxOrderIDFn      func(ctx context.Context, arg database.MaxOrderIDByStatusParams) (int64, error)
	listAfterIDFn     func(ctx context.Context, arg database.ListOrdersAfterIDParams) ([]database.Order, error)
	countByStatusesFn func(ctx context.Context, arg database.CountOrdersByStatusesParams) (int64, error)
}

func (m *mockNotifierStore) MaxOrderIDByStatus(ctx context.Context, arg database.MaxOrderIDByStatusParams) (int64, error) {
	return m.maxOrderIDFn(ctx, arg)
}
func (m *mockNotifierStore) ListOrdersAfterID(ctx context.Context, arg database.ListOrdersAfterIDParams) ([]database.Order, error) {
	return m.listAfterIDFn(ctx, arg)
}
func (m *mockNotifierStore) CountOrdersByStatuses(ctx context.Context, arg database.CountOrdersByStatusesParams) (int64, error) {
	return m.countByStatusesFn(ctx, arg)
}

// notifierStoreWithOrders serves a fixed set of pending orders and zero
// confirmed ones, which is enough for single-channel walks.
func notifierStoreWithOrders(pendingIDs ...int64) *mockNotifierStore {
	return &mockNotifierStore{
		maxOrderIDFn: func(ctx context.Context, arg database.MaxOrderIDByStatusParams) (int64, error) {
			if arg.Status != enum.OrderStatusPending || len(pendingIDs) == 0 {
				return 0, nil
			}
			return pendingIDs[len(pendingIDs)-1], nil
		},
		listAfterIDFn: func(ctx context.Context, arg database.ListOrdersAfterIDParams) ([]database.Order, error) {
			var orders []database.Order
			for _, id := range pendingIDs {
				if arg.Status == enum.OrderStatusPending && id > arg.AfterID {
					orders = append(orders, database.Order{ID: id, Status: enum.OrderStatusPending})
				}
			}
			return orders, nil
		},
		countByStatusesFn: func(ctx context.Context, arg database.CountOrdersByStatusesParams) (int64, error) {
			return 0, nil
		},
	}
}

// =====================
// Poll tests
// =====================

func TestPoll_FirstPollSeedsWithoutEvents(t *testing.T) {
	cursors := cursor.NewMemory()
	n := NewNotifier(notifierStoreWithOrders(10, 11, 12), cursors)
	tenantID, viewerID := uuid.New(), uuid.New()

	result, err := n.Poll(context.Background(), tenantID, viewerID, enum.UserRoleCashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Notifications) != 0 {
		t.Fatalf("first poll returned %d notifications, want 0", len(result.Notifications))
	}

	// Cursor must sit at the current max so only later orders surface.
	watermark, found, _ := cursors.Get(context.Background(), cursor.Key(tenantID, viewerID, ChannelPending))
	if !found || watermark != 12 {
		t.Errorf("seeded watermark = %d (found=%v), want 12", watermark, found)
	}
}

func TestPoll_ReturnsUnseenThenGoesQuiet(t *testing.T) {
	cursors := cursor.NewMemory()
	n := NewNotifier(notifierStoreWithOrders(10, 11, 12), cursors)
	tenantID, viewerID := uuid.New(), uuid.New()

	// A viewer who last saw order 10.
	key := cursor.Key(tenantID, viewerID, ChannelPending)
	if err := cursors.Set(context.Background(), key, 10); err != nil {
		t.Fatal(err)
	}

	result, err := n.Poll(context.Background(), tenantID, viewerID, enum.UserRoleCashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Notifications) != 2 {
		t.Fatalf("got %d notifications, want 2", len(result.Notifications))
	}
	gotIDs := []int64{result.Notifications[0].Order.ID, result.Notifications[1].Order.ID}
	if !reflect.DeepEqual(gotIDs, []int64{11, 12}) {
		t.Errorf("notification ids = %v, want [11 12]", gotIDs)
	}
	for _, notif := range result.Notifications {
		if notif.Channel != ChannelPending {
			t.Errorf("channel = %q, want pending", notif.Channel)
		}
	}

	// Same state again: everything has been seen.
	result, err = n.Poll(context.Background(), tenantID, viewerID, enum.UserRoleCashier)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Notifications) != 0 {
		t.Errorf("re-poll returned %d notifications, want 0", len(result.Notifications))
	}
}

func TestPoll_CursorsAreIndependentPerViewer(t *testing.T) {
	cursors := cursor.NewMemory()
	n := NewNotifier(notifierStoreWithOrders(10, 11, 12), cursors)
	tenantID := uuid.New()
	cashierA, cashierB := uuid.New(), uuid.New()

	cursors.Set(context.Background(), cursor.Key(tenantID, cashierA, ChannelPending), 10)
	cursors.Set(context.Background(), cursor.Key(tenantID, cashierB, ChannelPending), 12)

	resultA, err := n.Poll(context.Background(), tenantID, cashierA, enum.UserRoleCashier)
	if err != nil {
		t.Fatal(err)
	}
	resultB, err := n.Poll(context.Background(), tenantID, cashierB, enum.UserRoleCashier)
	if err != nil {
		t.Fatal(err)
	}
	if len(resultA.Notifications) != 2 {
		t.Errorf("cashier A got %d notifications, want 2", len(resultA.Notifications))
	}
	if len(resultB.Notifications) != 0 {
		t.Errorf("cashier B got %d notifications, want 0", len(resultB.Notifications))
	}
}

func TestPoll_ChannelsByRole(t *testing.T) {
	cases := []struct {
		role string
		want []string
	}{
		{enum.UserRoleOwner, []string{ChannelPending, ChannelConfirmed}},
		{enum.UserRoleManager, []string{ChannelPending, ChannelConfirmed}},
		{enum.UserRoleKitchen, []string{ChannelPending, ChannelConfirmed}},
		{enum.UserRoleCashier, []string{ChannelPending}},
	}
	for _, tc := range cases {
		var polled []string
		store := notifierStoreWithOrders()
		inner := store.maxOrderIDFn
		store.maxOrderIDFn = func(ctx context.Context, arg database.MaxOrderIDByStatusParams) (int64, error) {
			polled = append(polled, arg.Status)
			return inner(ctx, arg)
		}
		n := NewNotifier(store, cursor.NewMemory())

		if _, err := n.Poll(context.Background(), uuid.New(), uuid.New(), tc.role); err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.role, err)
		}
		wantStatuses := make([]string, len(tc.want))
		for i, ch := range tc.want {
			wantStatuses[i] = channelStatus[ch]
		}
		sort.Strings(polled)
		sort.Strings(wantStatuses)
		if !reflect.DeepEqual(polled, wantStatuses) {
			t.Errorf("%s polled %v, want %v", tc.role, polled, wantStatuses)
		}
	}
}

func TestPoll_BadgeCounts(t *testing.T) {
	store := notifierStoreWithOrders()
	store.countByStatusesFn = func(ctx context.Context, arg database.CountOrdersByStatusesParams) (int64, error) {
		if reflect.DeepEqual(arg.Statuses, []string{enum.OrderStatusPending}) {
			return 3, nil
		}
		if reflect.DeepEqual(arg.Statuses, []string{enum.OrderStatusConfirmed, enum.OrderStatusPreparing}) {
			return 5, nil
		}
		t.Fatalf("unexpected count query: %v", arg.Statuses)
		return 0, nil
	}
	n := NewNotifier(store, cursor.NewMemory())

	result, err := n.Poll(context.Background(), uuid.New(), uuid.New(), enum.UserRoleOwner)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PendingCount != 3 {
		t.Errorf("pending count = %d, want 3", result.PendingCount)
	}
	if result.ActiveCount != 5 {
		t.Errorf("active count = %d, want 5", result.ActiveCount)
	}
}
