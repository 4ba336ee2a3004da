// Package dispatch decides, per ingested event, who gets told and how: it
// enumerates active subscriptions, runs each user through the inbox and push
// gates, fans out push sends in bounded batches, classifies failures, and
// retires permanently dead endpoints.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iamjameskeane/realpolitik-sub000/internal/model"
	"github.com/iamjameskeane/realpolitik-sub000/internal/push"
	"github.com/iamjameskeane/realpolitik-sub000/internal/rules"
	"github.com/iamjameskeane/realpolitik-sub000/internal/store"
)

// DefaultBatchSize caps how many sends run concurrently: one batch fans out
// in parallel, batches run one after another.
const DefaultBatchSize = 50

// highUrgencySeverity is the fixed threshold above which the transport gets
// the "high" urgency hint. Not a per-user tunable.
const highUrgencySeverity = 8

// Sender delivers one payload to one subscription. *push.Service is the real
// implementation; tests swap in a fake.
type Sender interface {
	Send(ctx context.Context, sub *model.Subscription, payload model.NotificationPayload, urgency push.Urgency) error
}

// Result summarizes one dispatch call. It is returned, not persisted;
// the day's running totals go to the stats store.
type Result struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Removed int `json:"removed"`
}

// Config tunes the engine.
type Config struct {
	// BatchSize overrides DefaultBatchSize when positive.
	BatchSize int
	// RefreshOnSend makes every successful delivery refresh the
	// subscription TTL. Off by default: it costs a read and a write per
	// send, and the 90-day TTL with refresh-on-resubscribe gives enough
	// staleness tolerance without it.
	RefreshOnSend bool
}

// Engine orchestrates dispatch. Build one at process start with the chosen
// storage backend and inject it wherever events arrive.
type Engine struct {
	subs          store.SubscriptionStore
	prefs         store.PreferenceStore
	dedup         store.DedupStore
	inbox         store.InboxStore
	stats         store.StatsStore
	sender        Sender
	logger        *slog.Logger
	batchSize     int
	refreshOnSend bool
	now           func() time.Time
}

func New(subs store.SubscriptionStore, prefs store.PreferenceStore, dedup store.DedupStore,
	inbox store.InboxStore, stats store.StatsStore, sender Sender, cfg Config, logger *slog.Logger,
) *Engine {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		subs:          subs,
		prefs:         prefs,
		dedup:         dedup,
		inbox:         inbox,
		stats:         stats,
		sender:        sender,
		logger:        logger,
		batchSize:     batchSize,
		refreshOnSend: cfg.RefreshOnSend,
		now:           time.Now,
	}
}

// Dispatch processes one event. Only an inability to enumerate subscriptions
// is fatal; everything scoped to a single user or a single send is logged and
// absorbed, and the returned Result describes the partial outcome.
func (e *Engine) Dispatch(ctx context.Context, payload model.NotificationPayload) (Result, error) {
	subs, err := e.subs.ListActive(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list subscriptions: %w", err)
	}

	ev := payload.Event()
	urgency := push.UrgencyNormal
	if payload.Severity >= highUrgencySeverity {
		urgency = push.UrgencyHigh
	}

	queue := e.collect(ctx, ev, payload, subs)

	result, removals := e.sendBatches(ctx, queue, payload, urgency)

	for _, endpoint := range removals {
		existed, err := e.subs.Remove(ctx, endpoint)
		if err != nil {
			e.logger.Error("remove dead subscription", "error", err)
			continue
		}
		if existed {
			result.Removed++
		}
	}

	day := e.now().UTC().Format("2006-01-02")
	if err := e.stats.IncrDispatch(ctx, day, result.Success, result.Failed, result.Removed); err != nil {
		e.logger.Error("record dispatch stats", "error", err)
	}

	e.logger.Info("dispatch complete", "event_id", ev.ID,
		"success", result.Success, "failed", result.Failed, "removed", result.Removed)
	return result, nil
}

// collect runs the gates and the dedup ledger, returning the subscriptions
// to push to. Each user is decided once; a push decision covers all of their
// registered devices. The ledger check always precedes the decision, and the
// ledger is written whenever the inbox entry was: even when push was
// suppressed by quiet hours, so the end of the window cannot retroactively
// re-trigger pushes for events already in the inbox. A failed inbox write
// skips both the push and the ledger, leaving the user deliverable by a
// re-ingest.
func (e *Engine) collect(ctx context.Context, ev model.Event, payload model.NotificationPayload, subs []model.Subscription) []model.Subscription {
	devices := make(map[string][]model.Subscription)
	var users []string
	for _, sub := range subs {
		if _, ok := devices[sub.UserID]; !ok {
			users = append(users, sub.UserID)
		}
		devices[sub.UserID] = append(devices[sub.UserID], sub)
	}

	now := e.now()
	var queue []model.Subscription
	for _, userID := range users {
		seen, err := e.dedup.Seen(ctx, userID, ev.ID)
		if err != nil {
			// Can't tell whether the user was already notified; skip
			// rather than risk a duplicate push.
			e.logger.Error("check dedup ledger", "user_id", userID, "event_id", ev.ID, "error", err)
			continue
		}
		if seen {
			continue
		}

		prefs, err := e.prefs.Get(ctx, userID)
		if err != nil {
			e.logger.Error("load preferences", "user_id", userID, "error", err)
			continue
		}

		if !rules.ShouldAddToInbox(ev, prefs) {
			continue
		}

		if err := e.inbox.Add(ctx, model.InboxEntry{
			UserID:    userID,
			EventID:   ev.ID,
			Title:     payload.Title,
			Body:      payload.Body,
			URL:       payload.URL,
			Severity:  payload.Severity,
			Category:  payload.Category,
			CreatedAt: now.UTC(),
		}); err != nil {
			// The user was never actually notified. Leave the ledger alone
			// so a re-ingest can deliver the entry.
			e.logger.Error("write inbox entry", "user_id", userID, "event_id", ev.ID, "error", err)
			continue
		}

		if rules.ShouldSendPush(ev, prefs, now) {
			queue = append(queue, devices[userID]...)
		}

		if err := e.dedup.Record(ctx, userID, ev.ID, now); err != nil {
			e.logger.Error("write dedup ledger", "user_id", userID, "event_id", ev.ID, "error", err)
		}
	}
	return queue
}

// sendBatches delivers the queue in fixed-size batches. All sends within a
// batch run concurrently; batches run sequentially, capping peak concurrency
// against the push service. A hanging send delays its own batch, nothing
// else, since completion is awaited per batch.
func (e *Engine) sendBatches(ctx context.Context, queue []model.Subscription, payload model.NotificationPayload, urgency push.Urgency) (Result, []string) {
	var (
		result   Result
		removals []string
		mu       sync.Mutex
	)

	for start := 0; start < len(queue); start += e.batchSize {
		end := min(start+e.batchSize, len(queue))
		batch := queue[start:end]

		var g errgroup.Group
		for i := range batch {
			sub := batch[i]
			g.Go(func() error {
				err := e.sender.Send(ctx, &sub, payload, urgency)
				if err == nil && e.refreshOnSend {
					if terr := e.subs.Touch(ctx, sub.Endpoint); terr != nil {
						e.logger.Warn("touch subscription", "error", terr)
					}
				}

				switch {
				case err == nil:
				case errors.Is(err, push.ErrExpired):
					e.logger.Info("subscription expired at push service", "user_id", sub.UserID)
				case errors.Is(err, push.ErrRateLimited):
					e.logger.Warn("push service rate limited", "user_id", sub.UserID)
				default:
					e.logger.Error("push send failed", "user_id", sub.UserID, "error", err)
				}

				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					result.Success++
				case errors.Is(err, push.ErrExpired):
					result.Failed++
					removals = append(removals, sub.Endpoint)
				default:
					// Transient or unclassified: leave the subscription
					// active, the next event is the retry.
					result.Failed++
				}
				return nil
			})
		}
		_ = g.Wait()
	}
	return result, removals
}
