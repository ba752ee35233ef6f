package pipeline

import (
	"context"
	"log/slog"
	"time"

	"chikabot/internal/domain"
	"chikabot/internal/filter"
	"chikabot/internal/metrics"
	"chikabot/internal/webhook"
)

const defaultConcurrency = 4

// Loop is the core pipeline: consume a raw event, parse it, decide
// eligibility, generate a reply, deliver it. Every stage failure ends
// processing of that one event only; nothing ever escapes into the
// consumer loop or a sibling event.
type Loop struct {
	filter      *filter.Filter
	generator   domain.Generator
	deliverer   domain.Deliverer
	recorder    domain.OutcomeRecorder
	bus         domain.EventBus
	logger      *slog.Logger
	concurrency int
}

// LoopConfig holds all dependencies for the pipeline loop. Recorder is
// optional; everything else is required.
type LoopConfig struct {
	Filter      *filter.Filter
	Generator   domain.Generator
	Deliverer   domain.Deliverer
	Recorder    domain.OutcomeRecorder
	Bus         domain.EventBus
	Logger      *slog.Logger
	Concurrency int
}

// NewLoop creates a new pipeline loop.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Loop{
		filter:      cfg.Filter,
		generator:   cfg.Generator,
		deliverer:   cfg.Deliverer,
		recorder:    cfg.Recorder,
		bus:         cfg.Bus,
		logger:      cfg.Logger,
		concurrency: cfg.Concurrency,
	}
}

// Run consumes inbound events and processes them with bounded concurrency.
// Events are independent: no shared mutable state, no ordering between
// them, no retry or requeue once processing ends.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("pipeline started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("pipeline stopping")
			return
		case evt, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, pipeline stopping")
				return
			}
			sem <- struct{}{}
			go func(e domain.InboundEvent) {
				defer func() { <-sem }()
				l.ProcessEvent(ctx, e)
			}(evt)
		}
	}
}

// ProcessEvent runs one event through the full pipeline. It never panics
// out and never returns anything: a processed event is done, whatever
// happened to it.
func (l *Loop) ProcessEvent(ctx context.Context, evt domain.InboundEvent) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("pipeline panic recovered", "event_id", evt.ID, "panic", r)
		}
	}()

	metrics.EventsReceived.Inc()
	metrics.EventsInflight.Inc()
	defer metrics.EventsInflight.Dec()

	parsed, ok := webhook.Parse(evt.Payload)
	if !ok {
		// Expected and frequent: malformed bodies and non-message
		// notifications alike are ignored, not errors.
		metrics.ParseInvalid.Inc()
		l.logger.Debug("event ignored: no processable message", "event_id", evt.ID)
		return
	}

	decision := l.filter.Decide(parsed)
	if !decision.Reply {
		metrics.FilterRejected.Inc()
		l.logger.Debug("message filtered",
			"event_id", evt.ID,
			"message_id", parsed.MessageID,
			"sender", parsed.SenderID,
			"reason", string(decision.Reason),
		)
		return
	}

	start := time.Now()
	reply, err := l.generator.Generate(ctx, *parsed.Text)
	metrics.GeneratorLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeneratorErrors.Inc()
		l.logger.Error("reply generation failed",
			"event_id", evt.ID,
			"message_id", parsed.MessageID,
			"sender", parsed.SenderID,
			"error", err,
		)
		l.record(ctx, evt.ID, parsed, domain.DeliveryOutcome{Error: "generator: " + err.Error()})
		return
	}

	outcome := l.deliverer.Send(ctx, parsed.SenderID, reply)
	if outcome.Delivered {
		metrics.RepliesSent.Inc()
		l.logger.Info("reply delivered",
			"event_id", evt.ID,
			"message_id", parsed.MessageID,
			"sender", parsed.SenderID,
			"external_id", outcome.ExternalMessageID,
		)
	} else {
		metrics.DeliveryErrors.Inc()
		l.logger.Error("reply delivery failed",
			"event_id", evt.ID,
			"message_id", parsed.MessageID,
			"sender", parsed.SenderID,
			"error", outcome.Error,
		)
	}
	l.record(ctx, evt.ID, parsed, outcome)
}

// record persists the outcome when a recorder is wired. Best-effort only.
func (l *Loop) record(ctx context.Context, eventID string, msg *domain.ParsedMessage, outcome domain.DeliveryOutcome) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.Record(ctx, eventID, msg, outcome); err != nil {
		l.logger.Warn("failed to record outcome", "event_id", eventID, "error", err)
	}
}
