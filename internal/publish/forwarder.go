package publish

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-disaster-impact/internal/broadcast"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/observability"
)

// Forwarder drains a broadcaster subscription into a MessageWriter.
type Forwarder struct {
	broadcaster *broadcast.Broadcaster
	writer      MessageWriter
	metrics     *observability.Metrics
	done        chan struct{}
}

func NewForwarder(b *broadcast.Broadcaster, w MessageWriter, m *observability.Metrics) *Forwarder {
	if m == nil {
		m = observability.New(nil)
	}
	return &Forwarder{broadcaster: b, writer: w, metrics: m, done: make(chan struct{})}
}

// Start subscribes immediately and forwards in the background until ctx is
// cancelled or the broadcaster is closed.
func (f *Forwarder) Start(ctx context.Context) {
	id, ch := f.broadcaster.Subscribe()
	f.metrics.BroadcastSubscribers.Set(float64(f.broadcaster.SubscriberCount()))

	go func() {
		defer close(f.done)
		defer func() {
			f.broadcaster.Unsubscribe(id)
			f.metrics.BroadcastSubscribers.Set(float64(f.broadcaster.SubscriberCount()))
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case a, ok := <-ch:
				if !ok {
					return
				}
				f.forward(ctx, a)
			}
		}
	}()
}

func (f *Forwarder) forward(ctx context.Context, a *models.ImpactAssessment) {
	msg, err := serializeToMessage(a)
	if err == nil {
		err = f.writer.WriteMessages(ctx, msg)
	}
	if err != nil {
		f.metrics.PublishedMessages.WithLabelValues("error").Inc()
		slog.Error("failed to publish assessment", "assessment_id", a.ID, "disaster_id", a.DisasterID, "error", err)
		return
	}
	f.metrics.PublishedMessages.WithLabelValues("success").Inc()
	slog.Debug("published assessment", "assessment_id", a.ID, "disaster_id", a.DisasterID)
}

// Wait blocks until the forwarding goroutine has exited.
func (f *Forwarder) Wait() { <-f.done }

// Close waits for the forwarder and closes the writer.
func (f *Forwarder) Close() error {
	f.Wait()
	return f.writer.Close()
}
