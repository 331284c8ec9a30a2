package service

import (
	"context"
	"fmt"

	"scada_quote_backend/internal/events"
	"scada_quote_backend/internal/quotes/repository"
	"scada_quote_backend/internal/quotes/transport"
	"scada_quote_backend/platform/apperr"

	"github.com/google/uuid"
)

// UpdateStatus moves a quote through its lifecycle. Requesting the status the
// quote already has is a no-op; any move outside the lifecycle is a conflict.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, status string) (*transport.QuoteResponse, error) {
	if !actor.canWrite() {
		return nil, apperr.Forbidden(msgWriteForbidden)
	}

	quote, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	current := EffectiveStatus(quote.Status, quote.ValidUntil, now)
	if current == status {
		return s.GetByID(ctx, id)
	}
	if !CanTransition(current, status) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot change a %s quote to %s", current, status))
	}

	if err := s.repo.UpdateStatus(ctx, id, quote.Status, status, now); err != nil {
		return nil, err
	}

	actorID := actor.UserID
	s.publishStatusChanged(ctx, quote, status, &actorID)
	s.log.WithContext(ctx).QuoteEvent("status_changed", quote.QuoteNumber, status)

	return s.GetByID(ctx, id)
}

// ExpireOverdue stores the expired status for draft and sent quotes whose
// validity has ended, in batches, and returns how many were changed. Reads
// already report such quotes as expired; this makes the change durable and
// announces it.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	expired := 0

	for {
		overdue, err := s.repo.ListOverdue(ctx, now, expiryBatchSize)
		if err != nil {
			return expired, err
		}
		changedInBatch := 0
		for i := range overdue {
			q := overdue[i]
			ok, err := s.repo.MarkExpired(ctx, q.ID, now)
			if err != nil {
				return expired, err
			}
			if !ok {
				continue
			}
			changedInBatch++
			s.publishStatusChanged(ctx, &q, StatusExpired, nil)
			s.log.WithContext(ctx).QuoteEvent("expired", q.QuoteNumber, StatusExpired)
		}
		expired += changedInBatch
		if len(overdue) < expiryBatchSize || changedInBatch == 0 {
			return expired, nil
		}
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, q *repository.Quote, newStatus string, actorID *uuid.UUID) {
	if s.eventBus == nil {
		return
	}
	s.eventBus.Publish(ctx, events.QuoteStatusChanged{
		BaseEvent:   events.NewBaseEvent(),
		QuoteID:     q.ID,
		QuoteNumber: q.QuoteNumber,
		OldStatus:   q.Status,
		NewStatus:   newStatus,
		ActorID:     actorID,
		ClientEmail: q.ClientEmail,
		ClientName:  q.ClientName,
	})
}
