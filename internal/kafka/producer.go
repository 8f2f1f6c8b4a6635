package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mkstocker/portfolio-service/internal/models"
	"github.com/segmentio/kafka-go"
)

// Producer publishes lot change events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishLotAdded publishes a lot added event
func (p *Producer) PublishLotAdded(ctx context.Context, lot *models.StockLot) error {
	event := models.LotEvent{
		EventType: "LOT_ADDED",
		Lot:       lot,
		LotID:     lot.ID,
		Ticker:    lot.Ticker,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, lot.Ticker, event)
}

// PublishLotUpdated publishes a lot updated event
func (p *Producer) PublishLotUpdated(ctx context.Context, lot *models.StockLot) error {
	event := models.LotEvent{
		EventType: "LOT_UPDATED",
		Lot:       lot,
		LotID:     lot.ID,
		Ticker:    lot.Ticker,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, lot.Ticker, event)
}

// PublishLotRemoved publishes a lot removed event
func (p *Producer) PublishLotRemoved(ctx context.Context, lot *models.StockLot) error {
	event := models.LotEvent{
		EventType: "LOT_REMOVED",
		LotID:     lot.ID,
		Ticker:    lot.Ticker,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, lot.Ticker, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.LotEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
