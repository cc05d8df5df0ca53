// Package reconciler repairs stock for settled transactions whose
// reconciliation step did not complete at the till.
package reconciler

import (
	"context"
	"errors"
	"time"

	kafkax "github.com/ariefcatur/kasir-till/internal/kafka"
	"github.com/ariefcatur/kasir-till/internal/redisx"
	"github.com/ariefcatur/kasir-till/internal/sales"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Service struct {
	Store       sales.Store
	Cache       redisx.Cache
	Publisher   sales.Publisher
	Log         *zap.Logger
	ServiceName string
	Clock       func() time.Time
}

// HandleStockPending dipasang sebagai handler consumer.
func (s *Service) HandleStockPending(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != sales.EventStockReconcilePending {
		return nil
	}
	return s.Process(ctx, env)
}

// Process re-runs reconciliation for one pending event. Events are deduplicated
// by id so a redelivery never decrements stock twice.
func (s *Service) Process(ctx context.Context, env sales.Envelope) error {
	log := s.logger().With(zap.String("event_id", env.EventID), zap.String("transaction_id", env.CorrelationID))

	dkey := redisx.Key(redisx.KeyDedup, s.ServiceName, env.EventID)
	if _, done, err := s.Cache.Get(ctx, dkey); err != nil {
		return err
	} else if done {
		log.Debug("duplicate event ignored")
		return nil
	}

	p, err := kafkax.UnwrapPayload[sales.StockReconcilePendingPayload](env.Payload)
	if err != nil {
		return err
	}

	// transaksi harus sudah ada di ledger; kalau tidak, tidak ada yang diperbaiki
	if _, err := sales.NewLedger(s.Store).Get(ctx, p.TransactionID); err != nil {
		if errors.Is(err, sales.ErrTransactionNotFound) {
			log.Error("pending stock event for unknown transaction")
			return s.markDone(ctx, dkey, p.TransactionID)
		}
		return err
	}

	unlock, err := s.Store.Lock(ctx)
	if err != nil {
		return err
	}
	res, err := sales.ReconcileAll(ctx, s.Store, p.Items)
	unlock()
	if err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		log.Warn("reconcile skipped unknown products", zap.Strings("product_ids", res.Skipped))
	}
	log.Info("stock reconciled", zap.Strings("updated", res.Updated))

	if err := s.markDone(ctx, dkey, p.TransactionID); err != nil {
		return err
	}
	return s.publishReconciled(ctx, p.TransactionID, res)
}

func (s *Service) markDone(ctx context.Context, key, txnID string) error {
	return s.Cache.Set(ctx, key, txnID, redisx.TTLDedup)
}

func (s *Service) publishReconciled(ctx context.Context, txnID string, res sales.ReconcileResult) error {
	if s.Publisher == nil {
		return nil
	}
	ev, err := sales.NewEnvelope(sales.EventStockReconciled, s.ServiceName, txnID,
		sales.StockReconciledPayload{TransactionID: txnID, Updated: res.Updated, Skipped: res.Skipped}, s.now())
	if err != nil {
		return err
	}
	if err := s.Publisher.Publish(ctx, sales.TopicStockReconciled, ev); err != nil {
		// stok sudah benar; kegagalan publish cukup dicatat
		s.logger().Warn("publish reconciled failed", zap.String("transaction_id", txnID), zap.Error(err))
	}
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock()
}
