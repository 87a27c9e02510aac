package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"wastecollect-backend/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

// Route lifecycle event types
const (
	EventRouteCreated   = "route_created"
	EventRouteUpdated   = "route_updated"
	EventRouteAssigned  = "route_assigned"
	EventRouteStarted   = "route_started"
	EventBinCollected   = "bin_collected"
	EventBinSkipped     = "bin_skipped"
	EventRouteCompleted = "route_completed"
	EventRouteCancelled = "route_cancelled"
	EventRouteDeleted   = "route_deleted"
)

// RouteEventsExchange is the topic exchange lifecycle events are published to
const RouteEventsExchange = "route_events"

// RouteEvent is emitted after a route change has been persisted
type RouteEvent struct {
	Type       string
	Route      *models.Route
	ActorID    string
	OccurredAt int64
}

// RouteNotifier receives route events. Implementations must not fail the operation.
type RouteNotifier interface {
	Notify(ctx context.Context, event RouteEvent)
}

// routeEventMessage is the wire form used for websocket and broker payloads
type routeEventMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func newRouteEventMessage(event RouteEvent) routeEventMessage {
	route := event.Route
	counters := route.Counters()
	data := map[string]interface{}{
		"route_id":       route.ID,
		"route_name":     route.RouteName,
		"status":         route.Status,
		"assigned_to":    route.AssignedTo,
		"actor_id":       event.ActorID,
		"total_bins":     counters.TotalBins,
		"collected_bins": counters.CollectedBins,
		"skipped_bins":   counters.SkippedBins,
		"pending_bins":   counters.PendingBins,
		"progress":       counters.Progress,
		"version":        route.Version,
		"timestamp":      event.OccurredAt,
	}
	if route.Status == models.RouteStatusCompleted {
		data["analytics"] = models.CompletionAnalytics{
			BinsCollected:   route.BinsCollected,
			WasteCollected:  route.WasteCollected,
			RecyclableWaste: route.RecyclableWaste,
			Efficiency:      route.Efficiency,
		}
	}
	return routeEventMessage{Type: event.Type, Data: data}
}

// RabbitPublisher publishes route events to a RabbitMQ topic exchange
// with routing key route.<event type>.
type RabbitPublisher struct {
	url       string
	mu        sync.RWMutex
	conn      *amqp091.Connection
	ch        *amqp091.Channel
	connClose chan *amqp091.Error
	isClosed  atomic.Bool
}

// NewRabbitPublisher dials the broker and declares the route events exchange
func NewRabbitPublisher(url string) (*RabbitPublisher, error) {
	p := &RabbitPublisher{url: url}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	go p.reconnect()
	return p, nil
}

func (p *RabbitPublisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		return errors.Join(conn.Close(), err)
	}

	err = ch.ExchangeDeclare(
		RouteEventsExchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Join(conn.Close(), err)
	}

	connClose := make(chan *amqp091.Error, 1)
	conn.NotifyClose(connClose)

	p.mu.Lock()
	p.conn = conn
	p.ch = ch
	p.connClose = connClose
	p.mu.Unlock()
	return nil
}

func (p *RabbitPublisher) reconnect() {
	for {
		p.mu.RLock()
		connClose := p.connClose
		p.mu.RUnlock()

		<-connClose
		if p.isClosed.Load() {
			return
		}
		log.Println("⚠️  RabbitMQ connection lost, reconnecting")
		for {
			if p.isClosed.Load() {
				return
			}
			if err := p.connect(); err != nil {
				time.Sleep(3 * time.Second)
				continue
			}
			log.Println("✅ Reconnected to RabbitMQ")
			break
		}
	}
}

// Publish sends one route event
func (p *RabbitPublisher) Publish(ctx context.Context, event RouteEvent) error {
	body, err := json.Marshal(newRouteEventMessage(event))
	if err != nil {
		return fmt.Errorf("failed to encode route event: %w", err)
	}

	p.mu.RLock()
	ch := p.ch
	p.mu.RUnlock()

	return ch.PublishWithContext(ctx,
		RouteEventsExchange,
		"route."+event.Type,
		false,
		false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Unix(event.OccurredAt, 0),
			Body:         body,
		},
	)
}

// Close shuts the connection down and stops reconnecting
func (p *RabbitPublisher) Close() error {
	p.isClosed.Store(true)
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.conn.Close()
}
