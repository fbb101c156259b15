package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/saji-pos/api/internal/cursor"
	"github.com/saji-pos/api/internal/database"
	"github.com/saji-pos/api/internal/enum"
)

// Notification channels. Each channel watches one order status; a
// viewer's watermark advances independently per channel.
const (
	ChannelPending   = "pending"   // new orders awaiting confirmation
	ChannelConfirmed = "confirmed" // confirmed orders entering the kitchen
)

// channelStatus maps a channel to the status it watches.
var channelStatus = map[string]string{
	ChannelPending:   enum.OrderStatusPending,
	ChannelConfirmed: enum.OrderStatusConfirmed,
}

// channelsForRole returns the channels a role polls. Everyone sees new
// pending orders; kitchen-facing roles also see confirmations.
func channelsForRole(role string) []string {
	switch role {
	case enum.UserRoleOwner, enum.UserRoleManager, enum.UserRoleKitchen:
		return []string{ChannelPending, ChannelConfirmed}
	default:
		return []string{ChannelPending}
	}
}

// NotifierStore defines the DB reads behind notification polling.
type NotifierStore interface {
	MaxOrderIDByStatus(ctx context.Context, arg database.MaxOrderIDByStatusParams) (int64, error)
	ListOrdersAfterID(ctx context.Context, arg database.ListOrdersAfterIDParams) ([]database.Order, error)
	CountOrdersByStatuses(ctx context.Context, arg database.CountOrdersByStatusesParams) (int64, error)
}

// Notification is one unseen order surfaced to the viewer.
type Notification struct {
	Channel string
	Order   database.Order
}

// PollResult is what one poll returns: unseen orders since the viewer's
// watermarks plus the live badge counts.
type PollResult struct {
	Notifications []Notification
	PendingCount  int64
	ActiveCount   int64 // confirmed + preparing
}

// Notifier implements watermark-based new-order polling. Each
// (tenant, viewer, channel) carries its own cursor so two cashiers
// don't clear each other's alerts. Cursors live in the Store with a
// TTL; an expired cursor re-seeds at the current high-water mark
// instead of replaying history.
type Notifier struct {
	store   NotifierStore
	cursors cursor.Store
}

func NewNotifier(store NotifierStore, cursors cursor.Store) *Notifier {
	return &Notifier{store: store, cursors: cursors}
}

// Poll returns orders the viewer has not seen yet and advances the
// watermarks. The first poll (or one after cursor expiry) seeds at the
// current maximum id and reports nothing: the viewer starts from "now".
func (n *Notifier) Poll(ctx context.Context, tenantID, viewerID uuid.UUID, role string) (*PollResult, error) {
	result := &PollResult{}

	for _, channel := range channelsForRole(role) {
		status := channelStatus[channel]
		key := cursor.Key(tenantID, viewerID, channel)

		watermark, found, err := n.cursors.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("get cursor %s: %w", channel, err)
		}

		maxID, err := n.store.MaxOrderIDByStatus(ctx, database.MaxOrderIDByStatusParams{
			TenantID: tenantID,
			Status:   status,
		})
		if err != nil {
			return nil, fmt.Errorf("max order id %s: %w", channel, err)
		}

		if !found {
			if err := n.cursors.Set(ctx, key, maxID); err != nil {
				return nil, fmt.Errorf("seed cursor %s: %w", channel, err)
			}
			continue
		}

		if maxID > watermark {
			orders, err := n.store.ListOrdersAfterID(ctx, database.ListOrdersAfterIDParams{
				TenantID: tenantID,
				Status:   status,
				AfterID:  watermark,
			})
			if err != nil {
				return nil, fmt.Errorf("list orders %s: %w", channel, err)
			}
			for _, o := range orders {
				result.Notifications = append(result.Notifications, Notification{Channel: channel, Order: o})
			}
			watermark = maxID
		}

		// Refresh the TTL even when nothing is new.
		if err := n.cursors.Set(ctx, key, watermark); err != nil {
			return nil, fmt.Errorf("advance cursor %s: %w", channel, err)
		}
	}

	pending, err := n.store.CountOrdersByStatuses(ctx, database.CountOrdersByStatusesParams{
		TenantID: tenantID,
		Statuses: []string{enum.OrderStatusPending},
	})
	if err != nil {
		return nil, fmt.Errorf("count pending: %w", err)
	}
	active, err := n.store.CountOrdersByStatuses(ctx, database.CountOrdersByStatusesParams{
		TenantID: tenantID,
		Statuses: []string{enum.OrderStatusConfirmed, enum.OrderStatusPreparing},
	})
	if err != nil {
		return nil, fmt.Errorf("count active: %w", err)
	}
	result.PendingCount = pending
	result.ActiveCount = active

	return result, nil
}
