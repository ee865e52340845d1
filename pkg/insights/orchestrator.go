package insights

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	pferrors "github.com/otherjamesbrown/meeting-insights/pkg/errors"
	"github.com/otherjamesbrown/meeting-insights/pkg/logging"
	"github.com/otherjamesbrown/meeting-insights/pkg/metrics"
	"github.com/otherjamesbrown/meeting-insights/pkg/transcript"
)

// DefaultAgentTimeout bounds a single agent run including its retries.
const DefaultAgentTimeout = 60 * time.Second

// OrchestratorConfig tunes the agent fan-out.
type OrchestratorConfig struct {
	// AgentTimeout bounds each agent run. An agent that exceeds it gets its
	// fallback payload, never a retry.
	AgentTimeout time.Duration `yaml:"agent_timeout"`
}

// Orchestrator fans the agents out concurrently over a transcript and
// assembles the bundle. Agent failures degrade to fallbacks; the orchestrator
// itself only fails when the context is cancelled before any work completes.
type Orchestrator struct {
	agents  []Agent
	timeout time.Duration
	logger  logging.Logger
	tracer  trace.Tracer
}

// NewOrchestrator builds an orchestrator over the given agents.
func NewOrchestrator(agents []Agent, cfg OrchestratorConfig, logger logging.Logger) *Orchestrator {
	timeout := cfg.AgentTimeout
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Orchestrator{
		agents:  agents,
		timeout: timeout,
		logger:  logger.With(logging.F("component", "orchestrator")),
		tracer:  otel.Tracer("insights"),
	}
}

// Run executes all agents concurrently and returns the assembled bundle.
// The bundle always contains all five sections.
func (o *Orchestrator) Run(ctx context.Context, meetingID string, t *transcript.Transcript) *InsightBundle {
	ctx, span := o.tracer.Start(ctx, "insights.run",
		trace.WithAttributes(attribute.String("meeting_id", meetingID)))
	defer span.End()

	results := make([]AgentResult, len(o.agents))
	var wg sync.WaitGroup
	for i, agent := range o.agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			results[i] = o.runAgent(ctx, agent, t)
		}(i, agent)
	}
	wg.Wait()

	bundle := &InsightBundle{
		MeetingID:   meetingID,
		GeneratedAt: time.Now().UTC(),
	}
	for i, agent := range o.agents {
		switch agent.Name() {
		case AgentTopic:
			bundle.Topics = results[i]
		case AgentDecision:
			bundle.Decisions = results[i]
		case AgentAction:
			bundle.ActionItems = results[i]
		case AgentSentiment:
			bundle.Sentiment = results[i]
		case AgentSummary:
			bundle.Summary = results[i]
		}
	}

	if degraded := bundle.DegradedAgents(); len(degraded) > 0 {
		o.logger.Warn("bundle assembled with degraded sections",
			logging.F("meeting_id", meetingID),
			logging.F("degraded", degraded))
	} else {
		o.logger.Info("bundle assembled",
			logging.F("meeting_id", meetingID))
	}
	return bundle
}

// runAgent runs one agent under the per-agent timeout and substitutes the
// fallback payload on any failure.
func (o *Orchestrator) runAgent(ctx context.Context, agent Agent, t *transcript.Transcript) AgentResult {
	ctx, span := o.tracer.Start(ctx, "insights.agent",
		trace.WithAttributes(attribute.String("agent", agent.Name())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	payload, err := agent.Run(ctx, t)
	latency := time.Since(start)
	metrics.AgentLatency.WithLabelValues(agent.Name()).Observe(latency.Seconds())

	if err == nil {
		metrics.AgentRuns.WithLabelValues(agent.Name(), StatusSuccess).Inc()
		return AgentResult{
			AgentName: agent.Name(),
			Status:    StatusSuccess,
			Payload:   payload,
			LatencyMs: latency.Milliseconds(),
		}
	}

	pe := pferrors.ClassifyError(err, "agent_"+agent.Name())
	o.logger.Warn("agent failed, using local fallback",
		logging.F("agent", agent.Name()),
		logging.F("code", string(pe.Code)),
		logging.Err(err))

	metrics.AgentRuns.WithLabelValues(agent.Name(), StatusDegraded).Inc()
	return AgentResult{
		AgentName: agent.Name(),
		Status:    StatusDegraded,
		Payload:   agent.Fallback(t),
		LatencyMs: latency.Milliseconds(),
		Error:     pe.Error(),
	}
}
