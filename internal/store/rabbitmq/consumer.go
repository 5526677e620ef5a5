package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandleFunc processes one job id. A returned error dead-letters the
// message.
type HandleFunc func(ctx context.Context, jobID string) error

type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	log         *zap.Logger
}

// NewConsumer connects and sets the prefetch to concurrency, so the broker
// never hands out more jobs than the pool can run.
func NewConsumer(url, queue string, concurrency int, log *zap.Logger) (*Consumer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declareTopology(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, concurrency: concurrency, log: log}, nil
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Run consumes until ctx is cancelled or the delivery channel closes, then
// waits for in-flight jobs.
func (c *Consumer) Run(ctx context.Context, handle HandleFunc) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	c.log.Info("worker started", zap.String("queue", c.queue), zap.Int("concurrency", c.concurrency))

	// worker pool
	jobs := make(chan amqp.Delivery, c.concurrency*2)
	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			log := c.log.With(zap.Int("worker", workerID))
			for d := range jobs {
				handleDelivery(ctx, d, handle, log)
			}
		}(i)
	}

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			c.log.Info("worker shutting down")
			close(jobs)
			wg.Wait()
			return nil

		case d, ok := <-msgs:
			if !ok {
				close(jobs)
				wg.Wait()
				return errors.New("rabbitmq: delivery channel closed")
			}
			jobs <- d
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, handle HandleFunc, log *zap.Logger) {
	var m JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		log.Warn("bad job message", zap.ByteString("body", d.Body), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	if err := handle(ctx, m.JobID); err != nil {
		if ctx.Err() != nil {
			// shutting down: hand the job back for the next consumer
			log.Warn("job interrupted, requeueing", zap.String("job_id", m.JobID), zap.Error(err))
			_ = d.Nack(false, true)
			return
		}
		log.Error("job failed", zap.String("job_id", m.JobID), zap.Duration("cost", time.Since(start)), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.String("job_id", m.JobID), zap.Error(err))
		return
	}
	if cost := time.Since(start); cost > 2*time.Second {
		log.Info("job timing", zap.String("job_id", m.JobID), zap.Duration("cost", cost))
	}
}
