package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"wellness-sessions/internal/model"
	"wellness-sessions/internal/platform/rabbitmq"
)

type SessionEventStore interface {
	Create(ctx context.Context, event *model.SessionEvent) error
}

// SessionEventWorker drains the session event queue into the audit table.
type SessionEventWorker struct {
	conn      *amqp.Connection
	store     SessionEventStore
	queueName string
	log       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionEventWorker(conn *amqp.Connection, store SessionEventStore, queueName string, log *slog.Logger) *SessionEventWorker {
	if log == nil {
		log = slog.Default()
	}
	return &SessionEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		log:       log.With("component", "session_event_worker", "queue", queueName),
	}
}

func (w *SessionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn("delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.log.Error("persist session event failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.Info("session event worker started")
	return nil
}

var errMalformedEvent = errors.New("malformed session event")

func (w *SessionEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.SessionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.SessionID == "" || event.Type == "" {
		return fmt.Errorf("%w: missing session_id or type", errMalformedEvent)
	}
	event.ID = 0
	if err := w.store.Create(ctx, &event); err != nil {
		return err
	}
	w.log.Debug("session event stored", "session_id", event.SessionID, "type", string(event.Type))
	return nil
}

func (w *SessionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
