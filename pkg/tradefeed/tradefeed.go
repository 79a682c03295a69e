// Package tradefeed publishes and consumes the execution feed: every ledger
// entry recorded by the matching engine is forwarded to a Kafka topic, keyed
// by instrument so per-instrument ordering survives partitioning.
package tradefeed

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/joripage/ordermatch-dev/pkg/matching"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

// executionMessage is the wire form of a ledger entry.
type executionMessage struct {
	ExecID           string          `json:"exec_id"`
	OrderID          string          `json:"order_id"`
	Instrument       string          `json:"instrument"`
	Side             string          `json:"side"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	Quantity         decimal.Decimal `json:"quantity"`
	CreatedAt        time.Time       `json:"created_at"`
}

func toMessage(ex matching.Execution) executionMessage {
	return executionMessage{
		ExecID:           ex.ExecID,
		OrderID:          ex.OrderID,
		Instrument:       ex.Instrument,
		Side:             string(ex.Side),
		ExecutedQuantity: ex.ExecutedQuantity,
		Quantity:         ex.Quantity,
		CreatedAt:        ex.CreatedAt,
	}
}

func (m executionMessage) execution() matching.Execution {
	return matching.Execution{
		ExecID:           m.ExecID,
		OrderID:          m.OrderID,
		Instrument:       m.Instrument,
		Side:             matching.OrderSide(m.Side),
		ExecutedQuantity: m.ExecutedQuantity,
		Quantity:         m.Quantity,
		CreatedAt:        m.CreatedAt,
	}
}

type Publisher struct {
	w     *kafka.Writer
	topic string
}

func NewPublisher(cfg *Config) *Publisher {
	return &Publisher{
		topic: cfg.Topic,
		w: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireNone,
			Async:                  true,
		},
	}
}

func (p *Publisher) PublishExecutions(ctx context.Context, execs []matching.Execution) error {
	if p == nil || p.w == nil {
		return errors.New("publisher not initialized")
	}

	msgs := make([]kafka.Message, 0, len(execs))
	for _, ex := range execs {
		value, err := json.Marshal(toMessage(ex))
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(ex.Instrument),
			Value: value,
		})
	}
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

type Consumer struct {
	r *kafka.Reader
}

func NewConsumer(cfg *Config) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			Topic:       cfg.Topic,
			StartOffset: kafka.FirstOffset,
			MaxWait:     500 * time.Millisecond,
			MinBytes:    1,
			MaxBytes:    10 << 20,
		}),
	}
}

// Run fetches executions and hands them to handler one batch at a time,
// committing offsets only after the handler succeeds. Decode failures are
// skipped and committed so a bad record cannot wedge the feed.
func (c *Consumer) Run(ctx context.Context, handler func(context.Context, []matching.Execution) error) error {
	const batchSize = 50
	batchTimeout := 200 * time.Millisecond

	var (
		pending []kafka.Message
		execs   []matching.Execution
	)

	flush := func() error {
		if len(execs) > 0 {
			if err := handler(ctx, execs); err != nil {
				return err
			}
		}
		if len(pending) > 0 {
			if err := c.r.CommitMessages(ctx, pending...); err != nil {
				return err
			}
		}
		pending = pending[:0]
		execs = execs[:0]
		return nil
	}

	for {
		fetchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
		m, err := c.r.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// batch window elapsed
				if err := flush(); err != nil {
					return err
				}
				continue
			}
			return err
		}

		pending = append(pending, m)
		var msg executionMessage
		if err := json.Unmarshal(m.Value, &msg); err == nil {
			execs = append(execs, msg.execution())
		}

		if len(pending) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.r.Close()
}
