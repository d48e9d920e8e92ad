package service

import (
	"context"
	"errors"
	"time"

	"funplanet-backend/internal/chain"
	"funplanet-backend/internal/model"
	"funplanet-backend/internal/repository"
	"funplanet-backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/go-co-op/gocron/v2"
)

// Reconciler repairs claim intents left behind by a crash or an RPC timeout
// between the on-chain transfer and the ledger update. Intents with a
// transaction hash are resolved from the receipt; intents without one are
// compensated, since the hash is persisted before every broadcast and a
// hash-less intent past the deadline was never sent.
type Reconciler struct {
	repo       ClaimRepository
	chain      ChainClient
	notifier   *Notifier
	interval   time.Duration
	staleAfter time.Duration

	scheduler gocron.Scheduler
}

func NewReconciler(repo ClaimRepository, chainClient ChainClient, notifier *Notifier, interval, staleAfter time.Duration) *Reconciler {
	if interval == 0 {
		interval = 2 * time.Minute
	}
	if staleAfter == 0 {
		staleAfter = 5 * time.Minute
	}
	return &Reconciler{
		repo:       repo,
		chain:      chainClient,
		notifier:   notifier,
		interval:   interval,
		staleAfter: staleAfter,
	}
}

func (r *Reconciler) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			defer cancel()
			r.Run(ctx)
		}),
	)
	if err != nil {
		return err
	}

	scheduler.Start()
	r.scheduler = scheduler
	return nil
}

func (r *Reconciler) Stop() {
	if r.scheduler != nil {
		if err := r.scheduler.Shutdown(); err != nil {
			logger.Logger().Warn("reconciler shutdown", zap.Error(err))
		}
	}
}

// Run performs a single reconciliation pass.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.Logger()

	intents, err := r.repo.GetStaleIntents(ctx, time.Now().UTC().Add(-r.staleAfter))
	if err != nil {
		log.Error("failed to load stale intents", zap.Error(err))
		return
	}

	for _, intent := range intents {
		if err := r.resolve(ctx, intent); err != nil {
			log.Error("failed to resolve intent",
				zap.String("intent_id", intent.ID.String()),
				zap.String("status", string(intent.Status)),
				zap.Error(err))
		}
	}
}

func (r *Reconciler) resolve(ctx context.Context, intent *model.ClaimIntent) error {
	log := logger.Logger()

	if intent.TxHash == nil {
		log.Warn("compensating intent with no transaction",
			zap.String("intent_id", intent.ID.String()))
		return r.compensate(ctx, intent)
	}

	success, err := r.chain.TxStatus(ctx, *intent.TxHash)
	switch {
	case errors.Is(err, chain.ErrTxNotFound):
		// The transaction never made it into a block within the deadline.
		log.Warn("compensating intent with unmined transaction",
			zap.String("intent_id", intent.ID.String()),
			zap.String("tx_hash", *intent.TxHash))
		return r.compensate(ctx, intent)
	case err != nil:
		return err
	}

	if !success {
		log.Warn("compensating intent with reverted transaction",
			zap.String("intent_id", intent.ID.String()),
			zap.String("tx_hash", *intent.TxHash))
		return r.compensate(ctx, intent)
	}

	if err := r.repo.FinalizeIntent(ctx, intent, *intent.TxHash); err != nil {
		if errors.Is(err, repository.ErrIntentSettled) {
			return nil
		}
		return err
	}

	log.Info("finalized intent from receipt",
		zap.String("intent_id", intent.ID.String()),
		zap.String("tx_hash", *intent.TxHash))
	r.publish(intent, model.ClaimStatusCompleted, *intent.TxHash)
	return nil
}

func (r *Reconciler) compensate(ctx context.Context, intent *model.ClaimIntent) error {
	if err := r.repo.CompensateIntent(ctx, intent); err != nil {
		if errors.Is(err, repository.ErrIntentSettled) {
			return nil
		}
		return err
	}
	r.publish(intent, model.ClaimStatusFailed, "")
	return nil
}

func (r *Reconciler) publish(intent *model.ClaimIntent, status model.ClaimStatus, txHash string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Publish(intent.UserID, model.ClaimEvent{
		ClaimID: intent.ClaimID,
		Status:  string(status),
		TxHash:  txHash,
		Amount:  intent.Amount,
	})
}
