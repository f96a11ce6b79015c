package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "StockSignal/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as not worth retrying, e.g. a payload that
// cannot be decoded.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type partitionKey struct {
	topic     string
	partition int
}

// Consumer reads registered topics and dispatches to a worker pool. Offsets
// are committed after a successful handle or after the message reached the DLQ.
type Consumer struct {
	cfg      ConsumerConfig
	log      *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgs     chan kafka.Message
	dlq      *kafka.Writer

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	partMu    sync.Mutex
	partLocks map[partitionKey]*sync.Mutex
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := ConsumerConfig{
		GroupID:     "stocksignal",
		WorkerCount: 1,
		BufferSize:  10,
		RetryMax:    3,
		BackoffMin:  50 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    10e3,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	l := cfg.Logger
	if l == nil {
		l = applogger.Nop()
	}

	c := &Consumer{
		cfg:       cfg,
		log:       l.With(applogger.String("component", "kafka_consumer")),
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		msgs:      make(chan kafka.Message, cfg.BufferSize),
		partLocks: make(map[partitionKey]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetrics()
	return c, nil
}

// RegisterHandler registers a message handler for its topic. A second handler
// for the same topic is ignored.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start creates one reader per registered topic and starts the workers.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx)
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.fetch(ctx, topic, reader)
	}
	c.log.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.Int("topics", len(c.readers)),
		applogger.String("group", c.cfg.GroupID),
	)
	return nil
}

// Stop cancels fetching, waits for in-flight handlers and closes readers.
// Messages that were fetched but not handled are redelivered on restart.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		stopErr = c.waitForWg(ctx)

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("close reader", applogger.String("topic", topic), applogger.Error(err))
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				c.log.Warn("close dlq writer", applogger.Error(err))
			}
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func (c *Consumer) waitForWg(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (c *Consumer) fetch(ctx context.Context, topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	for {
		msg, err := reader.FetchMessage(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			c.log.Warn("fetch message", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case c.msgs <- msg:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgs)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) worker(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case km := <-c.msgs:
			if h, ok := c.handlers[km.Topic]; ok {
				c.process(ctx, h, km)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, h MessageHandler, km kafka.Message) {
	start := time.Now()

	// max in-flight = 1 per (topic, partition) keeps per-symbol ordering
	pl := c.partitionLock(km.Topic, km.Partition)
	pl.Lock()
	defer pl.Unlock()

	attempts, err := handleWithRetry(ctx, h, km.Value, c.cfg.RetryMax, c.cfg.BackoffMin, c.cfg.BackoffMax)
	if ctx.Err() != nil {
		return
	}

	result := "ok"
	commit := err == nil
	if err != nil {
		result = "failed"
		c.log.Error("handle message",
			applogger.String("topic", km.Topic),
			applogger.Int("partition", km.Partition),
			applogger.Int64("offset", km.Offset),
			applogger.Int("attempts", attempts),
			applogger.Error(err),
		)
		if c.dlq != nil {
			if dlqErr := c.writeDLQ(ctx, km, err); dlqErr != nil {
				c.log.Error("write dlq", applogger.String("topic", c.cfg.DLQTopic), applogger.Error(dlqErr))
			} else {
				result = "dlq"
				commit = true
			}
		}
	}

	if commit {
		if reader := c.readers[km.Topic]; reader != nil {
			if cerr := commitWithRetry(ctx, reader, km, 3); cerr != nil {
				c.log.Error("commit offset", applogger.String("topic", km.Topic), applogger.Error(cerr))
			}
		}
	}
	consumerMessagesTotal.WithLabelValues(km.Topic, result).Inc()
	consumerHandleLatency.WithLabelValues(km.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) writeDLQ(ctx context.Context, km kafka.Message, cause error) error {
	return c.dlq.WriteMessages(ctx, kafka.Message{
		Topic: c.cfg.DLQTopic,
		Key:   km.Key,
		Value: km.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(km.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.partMu.Lock()
	defer c.partMu.Unlock()
	k := partitionKey{topic: topic, partition: partition}
	l, ok := c.partLocks[k]
	if !ok {
		l = &sync.Mutex{}
		c.partLocks[k] = l
	}
	return l
}

// handleWithRetry calls h until it succeeds, returns a permanent error, or
// retryMax retries are spent. It returns the number of attempts made.
func handleWithRetry(ctx context.Context, h MessageHandler, data []byte, retryMax int, backoffMin, backoffMax time.Duration) (int, error) {
	for attempt := 1; ; attempt++ {
		err := safeHandle(ctx, h, data)
		if err == nil || IsPermanent(err) || attempt > retryMax {
			return attempt, err
		}
		select {
		case <-time.After(backoffWithJitter(backoffMin, backoffMax, attempt)):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}
}

func safeHandle(ctx context.Context, h MessageHandler, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s handler: %v", h.Topic(), r)
		}
	}()
	return h.Handle(ctx, data)
}

func commitWithRetry(ctx context.Context, reader *kafka.Reader, km kafka.Message, max int) error {
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = reader.CommitMessages(cctx, km)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-time.After(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("commit after %d attempts: %w", max, err)
}

// backoffWithJitter doubles from min per attempt, caps at max and subtracts
// up to 50% jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerMessagesTotal *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "stocksignal_kafka_consumer_queue_depth", Help: "Number of messages waiting in consumer queue"},
			[]string{"topic"},
		)
		consumerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "stocksignal_kafka_consumer_messages_total", Help: "Handled messages by result"},
			[]string{"topic", "result"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "stocksignal_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
