// Package ratings keeps the denormalized average ratings in sync by consuming
// review.changed events.
package ratings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/lookali/marketplace-api/internal/events"
	kafkax "github.com/lookali/marketplace-api/internal/kafka"
	"github.com/lookali/marketplace-api/internal/reviews"
	"github.com/lookali/marketplace-api/pkg/logkey"
)

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Recomputer interface {
	Product(ctx context.Context, productID string) error
	Partner(ctx context.Context, partnerID string) error
}

type Worker struct {
	Recomputer Recomputer
	Dedup      Deduper
}

// HandleReviewChanged is installed as the consumer handler. A failed
// recompute is returned to the consumer, which logs and skips it; the next
// change for the same partner recomputes from scratch.
func (w *Worker) HandleReviewChanged(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		slog.WarnContext(ctx, "dropping undecodable message", slog.String(logkey.ERROR, err.Error()))
		return nil
	}
	if env.EventType != events.EventReviewChanged {
		return nil
	}

	log := slog.With(slog.String(logkey.EventID, env.EventID), slog.String(logkey.TraceID, env.TraceID))
	if seen, err := w.Dedup.Seen(ctx, env.EventID); err != nil {
		log.WarnContext(ctx, "dedup lookup failed", slog.String(logkey.ERROR, err.Error()))
	} else if seen {
		return nil
	}

	p, err := kafkax.UnwrapPayload[reviews.ChangedPayload](env.Payload)
	if err != nil {
		log.WarnContext(ctx, "dropping bad payload", slog.String(logkey.ERROR, err.Error()))
		return nil
	}

	if p.ProductID != "" {
		if err := w.Recomputer.Product(ctx, p.ProductID); err != nil {
			return fmt.Errorf("recompute product %s: %w", p.ProductID, err)
		}
	}
	if err := w.Recomputer.Partner(ctx, p.PartnerID); err != nil {
		return fmt.Errorf("recompute partner %s: %w", p.PartnerID, err)
	}

	// Marked only after the work so a crash in between repeats the recompute.
	if err := w.Dedup.Mark(ctx, env.EventID); err != nil {
		log.WarnContext(ctx, "dedup mark failed", slog.String(logkey.ERROR, err.Error()))
	}
	log.InfoContext(ctx, "ratings recomputed",
		slog.String(logkey.PartnerID, p.PartnerID), slog.String("product_id", p.ProductID))
	return nil
}
