package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const eventProducer = "restaurant-pos"

// EventPublisher receives order events after the transition has been committed.
// Publishing is best effort and never fails the operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, evt models.OrderEvent)
}

type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, evt models.OrderEvent) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, evt)
		}
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.OrderEvent) {}

// KafkaPublisher writes order events to a topic keyed by order id, so all
// events of one order stay in one partition.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					utils.ErrorLogger.WithField("messages", len(messages)).Errorf("Failed to deliver order events: %v", err)
				}
			},
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt models.OrderEvent) {
	value, err := json.Marshal(evt)
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling order event: %v", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"event_type": evt.EventType,
			"order_code": evt.OrderCode,
		}).Errorf("Failed to publish order event: %v", err)
	}
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func newOrderEvent(eventType string, order *models.Order, payment *models.Payment) models.OrderEvent {
	evt := models.OrderEvent{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     eventProducer,
		OrderID:      order.ID,
		OrderCode:    order.Code,
		UserID:       order.UserID,
		Status:       order.Status,
		Total:        order.Total,
	}
	if payment != nil {
		evt.PaymentMethod = payment.Method
		if payment.RefCode != nil {
			evt.PaymentRef = *payment.RefCode
		}
	}
	return evt
}
