package usecase

import (
	"context"

	"github.com/allisson/orderbus/internal/events"
	"github.com/allisson/orderbus/internal/outbox/domain"
)

// Stage writes one PENDING row per event. Callers run it inside the same
// transaction as the aggregate write so both commit or neither does.
func Stage(ctx context.Context, repo EventCreator, evts ...events.Event) error {
	for _, evt := range evts {
		row, err := domain.NewOutboxEvent(evt)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, row); err != nil {
			return err
		}
	}
	return nil
}
