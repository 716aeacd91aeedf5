// Package engine answers a request with the best matching mock file, fully evaluated.
package engine

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zerbitx/filegnock/evaluate"
	"github.com/zerbitx/filegnock/metrics"
	"github.com/zerbitx/filegnock/mock"
	"github.com/zerbitx/filegnock/paths"
	"github.com/zerbitx/filegnock/response"
	"github.com/zerbitx/filegnock/storage"
)

type (
	// Engine resolves requests against a store of mock files. It holds no per-request state.
	Engine struct {
		store     *storage.Store
		watched   []string
		evaluator *evaluate.Evaluator
		assembler *response.Assembler
		metrics   *metrics.Metrics
		logger    logrus.FieldLogger
	}

	config struct {
		watched   []string
		evaluator *evaluate.Evaluator
		metrics   *metrics.Metrics
		logger    logrus.FieldLogger
	}

	// Option is a function that can modify a default config
	Option func(c *config)
)

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithWatchedHeaders sets the headers taking part in filenames
func WithWatchedHeaders(watched []string) Option {
	return func(c *config) {
		c.watched = watched
	}
}

// WithEvaluator overrides the template evaluator
func WithEvaluator(e *evaluate.Evaluator) Option {
	return func(c *config) {
		c.evaluator = e
	}
}

// WithMetrics records resolutions
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// New returns an Engine over store
func New(store *storage.Store, options ...Option) *Engine {
	c := &config{
		logger: logrus.StandardLogger(),
	}

	for _, applyOption := range options {
		applyOption(c)
	}

	if c.evaluator == nil {
		c.evaluator = evaluate.New(store, evaluate.WithLogger(c.logger))
	}

	return &Engine{
		store:     store,
		watched:   append([]string(nil), c.watched...),
		evaluator: c.evaluator,
		assembler: response.New(c.evaluator, c.logger),
		metrics:   c.metrics,
		logger:    c.logger,
	}
}

// Watched returns the headers taking part in filenames
func (e *Engine) Watched() []string {
	return append([]string(nil), e.watched...)
}

// Candidates lists the files probed for req, most specific first
func (e *Engine) Candidates(req *mock.Request) []paths.Candidate {
	candidates, dropped := paths.Candidates(req, e.watched, e.store.Root())

	if dropped.Segments > 0 {
		e.logger.WithFields(logrus.Fields{
			"path":    req.Path,
			"literal": dropped.Segments,
			"max":     paths.MaxSegments,
		}).Warn("path too deep, keeping its leading segments literal")
	}

	if dropped.Discriminators > 0 {
		e.logger.WithFields(logrus.Fields{
			"path":    req.Path,
			"ignored": dropped.Discriminators,
			"max":     paths.MaxDiscriminators,
		}).Warn("too many discriminators, ignoring the last ones")
	}

	return candidates
}

// Resolve finds and evaluates the mock for req. It returns mock.ErrNotFound when no file matches.
func (e *Engine) Resolve(req *mock.Request) (*mock.Response, error) {
	start := time.Now()
	candidates := e.Candidates(req)

	content, file := e.store.Content(candidates)
	if file == "" {
		e.logger.WithFields(logrus.Fields{"method": req.Method, "url": req.URL()}).Info("no mock found")
		e.metrics.Observe(metrics.OutcomeNotFound, len(candidates), time.Since(start))
		return nil, mock.ErrNotFound
	}

	res, err := e.assembler.Assemble(content, file, req)
	if err != nil {
		e.logger.WithError(err).WithField("file", e.store.Path(file)).Error("failed to evaluate")
		e.metrics.Observe(metrics.OutcomeError, len(candidates), time.Since(start))
		return nil, err
	}

	e.metrics.Observe(metrics.OutcomeFound, len(candidates), time.Since(start))

	return res, nil
}

// Evaluator is the template evaluator used for responses
func (e *Engine) Evaluator() *evaluate.Evaluator {
	return e.evaluator
}
