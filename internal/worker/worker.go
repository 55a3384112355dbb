// Package worker provides async claim processing from the event bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaims/harrier/internal/adjudication"
	"github.com/openclaims/harrier/internal/domain"
	"github.com/openclaims/harrier/internal/fraud"
)

// Worker consumes claim events and drives them through adjudication and
// fraud scanning.
type Worker struct {
	bus         domain.EventBus
	repo        domain.Repository
	adjudicator *adjudication.Service
	fraudEngine *fraud.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// InsurerIDs is the list of insurers to process.
	InsurerIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, adjudicator *adjudication.Service, fraudEngine *fraud.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:         bus,
		repo:        repo,
		adjudicator: adjudicator,
		fraudEngine: fraudEngine,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing claim events for the given insurers.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.InsurerIDs) == 0 {
		return fmt.Errorf("at least one insurer is required")
	}

	for _, insurerID := range cfg.InsurerIDs {
		if err := w.startInsurerWorker(insurerID); err != nil {
			slog.Error("failed to start worker for insurer",
				"insurer_id", insurerID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"insurer_count", len(cfg.InsurerIDs),
	)

	return nil
}

func (w *Worker) startInsurerWorker(insurerID string) error {
	// Full pipeline: adjudicate, then scan for fraud.
	sub, err := w.bus.Subscribe(w.ctx, insurerID, domain.TopicClaimSubmitted, func(ctx context.Context, msg *domain.Message) error {
		return w.processClaim(ctx, insurerID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	// Scan-only: re-run fraud rules against an already adjudicated claim.
	scanSub, err := w.bus.Subscribe(w.ctx, insurerID, domain.TopicFraudScan, func(ctx context.Context, msg *domain.Message) error {
		claim, err := w.loadClaim(ctx, msg)
		if err != nil {
			return err
		}
		return w.scanClaim(ctx, insurerID, claim)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, scanSub)

	slog.Info("insurer worker started",
		"insurer_id", insurerID,
		"topics", []string{domain.TopicClaimSubmitted, domain.TopicFraudScan},
	)

	return nil
}

// ClaimMessage is the payload for claim pipeline topics.
type ClaimMessage struct {
	ClaimID string `json:"claimId"`
}

// AlertMessage is the payload published to the fraud alert topic.
type AlertMessage struct {
	ClaimID         string `json:"claimId"`
	AlertID         string `json:"alertId"`
	RuleID          string `json:"ruleId"`
	Severity        string `json:"severity"`
	ConfidenceScore int    `json:"confidenceScore"`
	Explanation     string `json:"explanation"`
}

func (w *Worker) loadClaim(ctx context.Context, msg *domain.Message) (*domain.Claim, error) {
	var claimMsg ClaimMessage
	if err := json.Unmarshal(msg.Payload, &claimMsg); err != nil {
		slog.Error("failed to parse claim message",
			"message_id", msg.ID,
			"error", err,
		)
		return nil, err
	}

	claim, err := w.repo.GetClaim(ctx, claimMsg.ClaimID)
	if err != nil {
		return nil, fmt.Errorf("failed to load claim %s: %w", claimMsg.ClaimID, err)
	}
	return claim, nil
}

// processClaim runs the full pipeline for one submitted claim.
func (w *Worker) processClaim(ctx context.Context, insurerID string, msg *domain.Message) error {
	start := time.Now()

	claim, err := w.loadClaim(ctx, msg)
	if err != nil {
		return err
	}

	// 1. Adjudicate and persist.
	if _, err := w.adjudicator.Adjudicate(ctx, claim); err != nil {
		slog.Error("adjudication failed",
			"claim_id", claim.ID,
			"error", err,
		)
		return err
	}

	// 2. Publish the adjudication outcome.
	resultPayload, _ := json.Marshal(claim)
	if err := w.bus.Publish(ctx, insurerID, domain.TopicClaimAdjudicated, resultPayload); err != nil {
		slog.Error("failed to publish adjudication result",
			"claim_id", claim.ID,
			"error", err,
		)
	}

	// 3. Scan for fraud. A scan failure does not undo the adjudication.
	if err := w.scanClaim(ctx, insurerID, claim); err != nil {
		slog.Error("fraud scan failed",
			"claim_id", claim.ID,
			"error", err,
		)
	}

	slog.Info("claim processed",
		"claim_id", claim.ID,
		"insurer_id", insurerID,
		"status", claim.Status,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// scanClaim evaluates the insurer's fraud rules against the claim, persists
// the resulting alerts, and publishes them.
func (w *Worker) scanClaim(ctx context.Context, insurerID string, claim *domain.Claim) error {
	rules, err := w.repo.ListFraudRules(ctx, insurerID)
	if err != nil {
		return fmt.Errorf("failed to load fraud rules: %w", err)
	}

	alerts, err := w.fraudEngine.Evaluate(ctx, claim, rules)
	if err != nil {
		return err
	}

	for _, alert := range alerts {
		if err := w.repo.SaveAlert(ctx, alert); err != nil {
			slog.Error("failed to save alert",
				"claim_id", claim.ID,
				"rule_id", alert.RuleID,
				"error", err,
			)
			continue
		}

		payload, _ := json.Marshal(AlertMessage{
			ClaimID:         alert.ClaimID,
			AlertID:         alert.ID,
			RuleID:          alert.RuleID,
			Severity:        string(alert.Severity),
			ConfidenceScore: alert.ConfidenceScore,
			Explanation:     alert.Explanation,
		})
		if err := w.bus.Publish(ctx, insurerID, domain.TopicFraudAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"claim_id", claim.ID,
				"alert_id", alert.ID,
				"error", err,
			)
		}
	}

	if len(alerts) > 0 {
		slog.Info("fraud alerts raised",
			"claim_id", claim.ID,
			"insurer_id", insurerID,
			"alert_count", len(alerts),
		)
	}

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
