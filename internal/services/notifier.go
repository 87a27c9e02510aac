package services

import (
	"context"
	"log"
	"time"

	"wastecollect-backend/internal/models"
)

const publishTimeout = 5 * time.Second

// Broadcaster pushes messages to connected websocket clients
type Broadcaster interface {
	BroadcastToUser(userID string, data interface{})
	BroadcastToRole(role string, data interface{})
}

// EventPublisher forwards route events to a message broker
type EventPublisher interface {
	Publish(ctx context.Context, event RouteEvent) error
}

// PushSender delivers mobile push notifications
type PushSender interface {
	SendRouteAssignedNotification(token, routeID, routeName string, totalBins int) error
	SendRouteCancelledNotification(token, routeID, routeName string) error
}

// TokenLookup returns the push tokens registered for a user
type TokenLookup interface {
	GetFCMTokens(ctx context.Context, userID string) ([]string, error)
}

// CacheInvalidator drops cached analytics
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// RouteEventFanout delivers route events to websocket clients, the broker,
// push notifications and the analytics cache. Every sink is optional.
type RouteEventFanout struct {
	hub       Broadcaster
	publisher EventPublisher
	push      PushSender
	tokens    TokenLookup
	analytics CacheInvalidator
}

// NewRouteEventFanout builds a fanout; pass nil for any sink that is not configured
func NewRouteEventFanout(hub Broadcaster, publisher EventPublisher, push PushSender, tokens TokenLookup, analytics CacheInvalidator) *RouteEventFanout {
	return &RouteEventFanout{
		hub:       hub,
		publisher: publisher,
		push:      push,
		tokens:    tokens,
		analytics: analytics,
	}
}

// Notify implements RouteNotifier. Sink failures are logged only.
func (f *RouteEventFanout) Notify(ctx context.Context, event RouteEvent) {
	if event.Route == nil {
		return
	}
	message := newRouteEventMessage(event)

	if f.hub != nil {
		if event.Route.AssignedTo != nil {
			f.hub.BroadcastToUser(*event.Route.AssignedTo, message)
		}
		f.hub.BroadcastToRole(models.RoleAdmin, message)
		log.Printf("📡 WebSocket: Broadcasted %s for route %s", event.Type, event.Route.ID)
	}

	// Completed routes feed the summary; deleting one must drop it again
	if f.analytics != nil && (event.Type == EventRouteCompleted || event.Type == EventRouteDeleted) {
		if err := f.analytics.Invalidate(ctx); err != nil {
			log.Printf("⚠️  Failed to invalidate analytics cache: %v", err)
		}
	}

	if f.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		if err := f.publisher.Publish(pubCtx, event); err != nil {
			log.Printf("⚠️  Failed to publish %s event: %v", event.Type, err)
		}
		cancel()
	}

	switch event.Type {
	case EventRouteAssigned:
		f.sendPush(ctx, event.Route, func(token string) error {
			return f.push.SendRouteAssignedNotification(token, event.Route.ID, event.Route.RouteName, len(event.Route.Bins))
		})
	case EventRouteCancelled:
		f.sendPush(ctx, event.Route, func(token string) error {
			return f.push.SendRouteCancelledNotification(token, event.Route.ID, event.Route.RouteName)
		})
	}
}

// sendPush delivers to every token of the route's collector in the background
func (f *RouteEventFanout) sendPush(ctx context.Context, route *models.Route, send func(token string) error) {
	if f.push == nil || f.tokens == nil || route.AssignedTo == nil {
		return
	}

	tokens, err := f.tokens.GetFCMTokens(ctx, *route.AssignedTo)
	if err != nil {
		log.Printf("⚠️  Failed to load FCM tokens for %s: %v", *route.AssignedTo, err)
		return
	}
	if len(tokens) == 0 {
		log.Printf("   ℹ️  No FCM tokens registered for collector %s", *route.AssignedTo)
		return
	}

	go func() {
		for _, token := range tokens {
			if err := send(token); err != nil {
				log.Printf("⚠️  Failed to send FCM notification: %v", err)
			}
		}
	}()
}
