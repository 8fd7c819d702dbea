package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)

// Event is an order lifecycle notification for downstream consumers such as
// email delivery. Guest orders carry the guest contact instead of a user id.
type Event struct {
	Type       string             `json:"type"`
	OrderID    uuid.UUID          `json:"order_id"`
	UserID     *string            `json:"user_id,omitempty"`
	Guest      *domain.GuestInfo  `json:"guest,omitempty"`
	Status     domain.OrderStatus `json:"status"`
	PrevStatus domain.OrderStatus `json:"prev_status,omitempty"`
	TotalPrice decimal.Decimal    `json:"total_price"`
	ItemCount  int                `json:"item_count"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// NewOrderEvent builds an event from the order's current state.
func NewOrderEvent(eventType string, order *domain.Order, prev domain.OrderStatus) Event {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return Event{
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		Guest:      order.GuestInfo,
		Status:     order.Status,
		PrevStatus: prev,
		TotalPrice: order.TotalPrice,
		ItemCount:  count,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by order id so that all events of one
// order land on the same partition in order. A circuit breaker stops calls
// to an unreachable broker from stalling checkouts.
type KafkaPublisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *zap.Logger
}

func NewKafkaPublisher(topic string, logger *zap.Logger, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
		RequiredAcks:           kafka.RequireOne,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	settings := gobreaker.Settings{
		Name:        "order-events",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &KafkaPublisher{
		writer:  w,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
		logger:  logger,
	}
}

var ErrBrokerUnavailable = errors.New("event broker unavailable")

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}
	if err != nil {
		return fmt.Errorf("write event %s: %w", event.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
