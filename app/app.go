// Package app wires a validated Config into the collaborators the workflows
// run on: the LLM client (optionally cached in redis), the web fetcher, run
// history, telemetry and the compiled graphs.
//
//	cfg, _ := app.LoadConfig()
//	a, err := app.New(ctx, cfg)
//	defer a.Close(ctx)
//	run, err := a.Run(ctx, "hello", "Ada")
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/llm"
	_ "github.com/kbukum/stepflow/llm/anthropic"
	_ "github.com/kbukum/stepflow/llm/openai"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/redis"
	"github.com/kbukum/stepflow/web"
	"github.com/kbukum/stepflow/workflow"
)

// App holds everything a run needs. Graphs are built once in New and shared
// by concurrent runs.
type App struct {
	Cfg    *Config
	Logger *logger.Logger

	llm     llm.Completer
	web     workflow.PageFetcher
	redis   *redis.Client
	history *history.Store
	metrics *observability.Metrics
	runner  *graph.Runner
	graphs  map[string]*graph.Graph
	infos   []workflow.Info
	summary *Summary

	gracefulTimeout time.Duration
	shutdownTel     func(context.Context) error
}

// New validates cfg and builds the application. Nothing is contacted except
// the history database, which is opened and migrated when enabled.
func New(ctx context.Context, cfg *Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := resolveOptions(opts)

	a := &App{
		Cfg:             cfg,
		graphs:          make(map[string]*graph.Graph),
		gracefulTimeout: o.gracefulTimeout,
		summary:         NewSummary(cfg.Name, cfg.Version),
	}
	if o.logger != nil {
		a.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		a.Logger = logger.GetGlobalLogger()
	}

	if err := a.setup(ctx, o); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) setup(ctx context.Context, o *appOptions) error {
	shutdown, err := observability.Setup(ctx, a.Cfg.Observability)
	if err != nil {
		return apperrors.Configuration("observability: " + err.Error()).WithCause(err)
	}
	a.shutdownTel = shutdown
	a.summary.Add("telemetry", statusOf(a.Cfg.Observability.Enabled), a.Cfg.Observability.Endpoint)

	if a.metrics, err = observability.NewMetrics(observability.Meter()); err != nil {
		return fmt.Errorf("app: metrics: %w", err)
	}

	if err := a.setupLLM(o); err != nil {
		return err
	}

	a.web = o.fetcher
	if a.web == nil {
		f, err := web.NewFetcher(a.Cfg.Web, a.Logger)
		if err != nil {
			return apperrors.Configuration("web: " + err.Error()).WithCause(err)
		}
		a.web = f
	}

	if a.Cfg.History.Enabled {
		store, err := history.Open(ctx, a.Cfg.History, a.Logger)
		if err != nil {
			return err
		}
		a.history = store
	}
	a.summary.Add("history", statusOf(a.Cfg.History.Enabled), a.Cfg.History.DSN)

	a.runner = graph.NewRunner(graph.WithMiddleware(
		graph.WithLogging(a.Logger),
		graph.WithTracing("workflow"),
		graph.WithMetrics(a.metrics),
	))

	deps := workflow.Deps{LLM: a.llm, Web: a.web, Log: a.Logger}
	for _, w := range workflow.Catalog() {
		g, err := w.Build(deps)
		if err != nil {
			if errors.Is(err, graph.ErrInvalidDefinition) {
				return apperrors.PipelineDefinition(err)
			}
			return err
		}
		a.graphs[w.Name] = g
		a.infos = append(a.infos, workflow.Describe(w, g))
	}
	a.summary.Add("workflows", "ready", fmt.Sprintf("%d built", len(a.graphs)))
	return nil
}

func (a *App) setupLLM(o *appOptions) error {
	a.llm = o.completer
	scope := "custom"
	if a.llm == nil {
		adapter, err := llm.New(a.Cfg.LLM)
		if err != nil {
			return apperrors.Configuration(err.Error()).WithCause(err)
		}
		a.llm = adapter
		scope = adapter.Name() + "/" + adapter.Model()
		a.summary.Add("llm", "ready", scope)
	} else {
		a.summary.Add("llm", "ready", "custom completer")
	}

	if !a.Cfg.Redis.Enabled {
		a.summary.Add("cache", "disabled", "")
		return nil
	}
	client, err := redis.New(a.Cfg.Redis, a.Logger)
	if err != nil {
		return apperrors.Configuration("redis: " + err.Error()).WithCause(err)
	}
	a.redis = client
	store := redis.NewTypedStore[llm.CompletionResponse](client, "llm")
	a.llm = llm.WithCache(a.llm, store, scope, a.Cfg.CacheTTL, a.Logger)
	a.summary.Add("cache", "enabled", a.Cfg.Redis.Addr)
	return nil
}

// Run executes the named workflow for subject and returns the run. A
// completed run is saved to history when history is enabled. A failed run is
// not saved; the error is returned unchanged apart from graph definition
// errors, which become PIPELINE_DEFINITION_ERROR.
func (a *App) Run(ctx context.Context, name, subject string) (*history.Run, error) {
	w, err := workflow.Lookup(name)
	if err != nil {
		return nil, err
	}
	g := a.graphs[w.Name]
	input, err := w.Input(subject)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "workflow.run")
	defer span.End()
	observability.SetSpanAttribute(ctx, "workflow.name", w.Name)

	log := a.Logger.WithComponent("app").WithFields(logger.Fields("workflow", w.Name))
	log.Info("workflow started", logger.Fields("subject", subject))

	res, err := a.runner.Execute(ctx, g, input)
	if err != nil {
		observability.SetSpanError(ctx, err)
		a.metrics.RecordRun(ctx, w.Name, string(graph.StatusFailed), res.Duration)
		log.Error("workflow failed", logger.Fields("error", err.Error(), "steps", res.StepNames()))
		if errors.Is(err, graph.ErrInvalidDefinition) {
			return nil, apperrors.PipelineDefinition(err)
		}
		return nil, err
	}
	a.metrics.RecordRun(ctx, w.Name, string(graph.StatusCompleted), res.Duration)

	report, err := w.Report(res.Record)
	if err != nil {
		return nil, err
	}
	record, err := json.Marshal(res.Record)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("encode record: %w", err))
	}

	run := &history.Run{
		ID:         uuid.New(),
		Workflow:   w.Name,
		Subject:    subject,
		Status:     string(graph.StatusCompleted),
		Report:     report,
		Record:     record,
		Steps:      len(res.Path),
		DurationMS: res.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if a.history != nil {
		if err := a.history.Save(ctx, run); err != nil {
			log.Warn("run not saved", logger.ErrorFields("save", err))
		}
	}

	log.Info("workflow completed", logger.Fields(
		"run_id", run.ID.String(),
		"steps", run.Steps,
		logger.FieldDuration, run.DurationMS,
	))
	return run, nil
}

// Workflows describes every built workflow, sorted by name.
func (a *App) Workflows() []workflow.Info {
	return a.infos
}

// ListRuns returns recent runs, newest first.
func (a *App) ListRuns(ctx context.Context, limit int) ([]history.Run, error) {
	if a.history == nil {
		return nil, apperrors.ServiceUnavailable("history")
	}
	return a.history.List(ctx, limit)
}

// GetRun returns one saved run.
func (a *App) GetRun(ctx context.Context, id uuid.UUID) (*history.Run, error) {
	if a.history == nil {
		return nil, apperrors.ServiceUnavailable("history")
	}
	return a.history.Get(ctx, id)
}

// Health reports the state of the stateful collaborators.
func (a *App) Health(ctx context.Context) *observability.ServiceHealth {
	var checkers []observability.HealthChecker
	if a.history != nil {
		checkers = append(checkers, a.history)
	}
	if a.redis != nil {
		checkers = append(checkers, a.redis)
	}
	return observability.Check(ctx, a.Cfg.Name, a.Cfg.Version, 3*time.Second, checkers...)
}

// Summary returns the startup summary.
func (a *App) Summary() *Summary {
	return a.summary
}

// Close releases history, redis and telemetry. It is safe to call more than once.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.shutdownTel != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
		defer cancel()
		errs = append(errs, a.shutdownTel(shutdownCtx))
		a.shutdownTel = nil
	}
	return errors.Join(errs...)
}

func statusOf(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
