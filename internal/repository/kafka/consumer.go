package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, key, value []byte) error

// Consumer reads the flip topic in a consumer group and feeds each message
// to a Handler. Handler errors are logged and skipped, not retried: a flip
// that cannot be processed is re-derived by the next sweep, so redelivery
// would only alert twice. Offsets commit after the handler returns.
type Consumer struct {
	reader  *kafka.Reader
	log     *zap.Logger
	topic   string
	group   string
	backoff backoffPolicy
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool

	// Fetch-retry backoff; zero values fall back to 200ms..5s.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	Logger *zap.Logger
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1e3,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	c := &Consumer{
		reader:  r,
		topic:   cfg.Topic,
		group:   cfg.GroupID,
		backoff: newBackoffPolicy(cfg.MinBackoff, cfg.MaxBackoff),
	}
	c.log = c.componentLogger(logger)
	return c
}

func (c *Consumer) componentLogger(l *zap.Logger) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.flips"),
		zap.String("topic", c.topic),
		zap.String("group", c.group),
	)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = cp.componentLogger(l)
	return &cp
}

func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("flip consumer started")

	wait := c.backoff.min
	for {
		if ctx.Err() != nil {
			c.log.Info("flip consumer stopped")
			return ctx.Err()
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("flip consumer stopped")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF, retrying", zap.Duration("wait", wait))
			} else {
				c.log.Warn("fetch failed, retrying", zap.Error(err), zap.Duration("wait", wait))
			}
			time.Sleep(wait)
			wait = c.backoff.next(wait)
			continue
		}
		wait = c.backoff.min

		if err := h(ctx, msg.Key, msg.Value); err != nil {
			c.log.Error("flip handler error, skipping message",
				zap.String("key", string(msg.Key)),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.log.Info("commit interrupted by shutdown")
				return ctx.Err()
			}
			c.log.Warn("commit failed, will retry on next message", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }

// backoffPolicy is the doubling fetch-retry schedule, clamped to [min, max].
type backoffPolicy struct {
	min time.Duration
	max time.Duration
}

func newBackoffPolicy(min, max time.Duration) backoffPolicy {
	if min <= 0 {
		min = 200 * time.Millisecond
	}
	if max < min {
		max = 5 * time.Second
	}
	if max < min {
		max = min
	}
	return backoffPolicy{min: min, max: max}
}

func (b backoffPolicy) next(cur time.Duration) time.Duration {
	if cur < b.min {
		return b.min
	}
	cur *= 2
	if cur > b.max {
		return b.max
	}
	return cur
}
