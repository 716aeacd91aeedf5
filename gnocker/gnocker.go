package gnocker

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber"
	"github.com/gofiber/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"github.com/zerbitx/filegnock/config"
	"github.com/zerbitx/filegnock/encode"
	"github.com/zerbitx/filegnock/engine"
	"github.com/zerbitx/filegnock/metrics"
	"github.com/zerbitx/filegnock/mock"
	"github.com/zerbitx/filegnock/storage"
)

type (
	// BeforeHook may change a request before its mock is looked up
	BeforeHook func(c *fiber.Ctx, req *mock.Request)

	// AfterHook may change a response before it is sent
	AfterHook func(c *fiber.Ctx, req *mock.Request, res *mock.Response)

	gnocker struct {
		app            *fiber.App
		adminApp       *fiber.App
		engine         *engine.Engine
		settings       interface{}
		configBasePath string
		bodyParser     string
		before         []BeforeHook
		after          []AfterHook
		registry       *prometheus.Registry
		logger         logrus.FieldLogger
		port           int
		adminPort      int
		host           string
	}

	unknownParser string

	cfg struct {
		port           int
		adminPort      int
		configBasePath string
		host           string
		bodyParser     string
		watched        []string
		settings       interface{}
		before         []BeforeHook
		after          []AfterHook
		registry       *prometheus.Registry
		logger         logrus.FieldLogger
	}

	// Option is a function that can modify a default config
	Option func(c *cfg)
)

const (
	// DelayHeader holds a number of milliseconds to wait before sending a response
	DelayHeader = "Response-Delay"

	notFoundBody = "Response file not found!"
)

// Error implements the error interface
func (up unknownParser) Error() string {
	return fmt.Sprintf("unknown body parser %s", string(up))
}

// New returns a new gnocker serving the mocks of store on 127.0.0.1:8080, with its admin app on 8081
func New(store *storage.Store, options ...Option) (*gnocker, error) {
	c := &cfg{
		port:           8080,
		adminPort:      8081,
		logger:         logrus.StandardLogger(),
		host:           "127.0.0.1",
		configBasePath: "/gnockconfig",
		bodyParser:     config.ParserJSON,
	}

	for _, applyOption := range options {
		applyOption(c)
	}

	switch c.bodyParser {
	case config.ParserJSON, config.ParserText, config.ParserRaw, config.ParserURLEncoded:
	default:
		return nil, unknownParser(c.bodyParser)
	}

	if c.registry == nil {
		c.registry = prometheus.NewRegistry()
	}

	settings := &fiber.Settings{
		ServerHeader:          "GnockGnock",
		DisableStartupMessage: true,
	}

	g := &gnocker{
		app:      fiber.New(settings),
		adminApp: fiber.New(settings),
		engine: engine.New(store,
			engine.WithLogger(c.logger),
			engine.WithWatchedHeaders(c.watched),
			engine.WithMetrics(metrics.New(c.registry)),
		),
		settings:       c.settings,
		configBasePath: c.configBasePath,
		bodyParser:     c.bodyParser,
		before:         c.before,
		after:          c.after,
		registry:       c.registry,
		logger:         c.logger,
		port:           c.port,
		adminPort:      c.adminPort,
		host:           c.host,
	}

	g.logger.WithFields(logrus.Fields{
		"mocks":   store.Root(),
		"headers": g.engine.Watched(),
		"parser":  g.bodyParser,
	}).Info("serving mocks")

	g.app.Use(g.serve)
	g.initAdminEndpoints()

	return g, nil
}

// Start starts both apps
func (g *gnocker) Start() error {
	errc := make(chan error)

	// Start up our main server
	go func() {
		g.logger.WithFields(logrus.Fields{"host": g.host, "port": g.port}).Info("main")
		errc <- g.app.Listen(fmt.Sprintf("%s:%d", g.host, g.port))
	}()

	// Start up the admin server
	go func() {
		g.logger.WithFields(logrus.Fields{"host": g.host, "port": g.adminPort}).Info("admin")
		errc <- g.adminApp.Listen(fmt.Sprintf("%s:%d", g.host, g.adminPort))
	}()

	return <-errc
}

// Shutdown gracefully shuts down both apps
func (g *gnocker) Shutdown() error {
	if shutdownErr := g.app.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("failed to shutdown app %w", shutdownErr)
	}

	if shutdownErr := g.adminApp.Shutdown(); shutdownErr != nil {
		return fmt.Errorf("failed to shutdown admin app %w", shutdownErr)
	}

	return nil
}

// WithLogger overrides the default logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *cfg) {
		c.logger = l
	}
}

// WithHost sets the host
func WithHost(host string) Option {
	return func(c *cfg) {
		c.host = host
	}
}

// WithPort sets the main app's port
func WithPort(port int) Option {
	return func(c *cfg) {
		c.port = port
	}
}

// WithAdminPort sets the admin app's port
func WithAdminPort(port int) Option {
	return func(c *cfg) {
		c.adminPort = port
	}
}

// WithConfigBasePath sets the path the active configuration is published on
func WithConfigBasePath(basePath string) Option {
	return func(c *cfg) {
		c.configBasePath = basePath
	}
}

// WithBodyParser picks how request bodies are read: json, text, raw or urlencoded
func WithBodyParser(parser string) Option {
	return func(c *cfg) {
		c.bodyParser = parser
	}
}

// WithWatchedHeaders sets the headers taking part in mock filenames
func WithWatchedHeaders(watched []string) Option {
	return func(c *cfg) {
		c.watched = watched
	}
}

// WithSettings sets what the admin app publishes as the active configuration
func WithSettings(settings interface{}) Option {
	return func(c *cfg) {
		c.settings = settings
	}
}

// WithBefore adds hooks run on every request before its mock is looked up
func WithBefore(hooks ...BeforeHook) Option {
	return func(c *cfg) {
		c.before = append(c.before, hooks...)
	}
}

// WithAfter adds hooks run on every response before it is sent
func WithAfter(hooks ...AfterHook) Option {
	return func(c *cfg) {
		c.after = append(c.after, hooks...)
	}
}

// WithRegistry registers the metrics with reg instead of a private registry
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *cfg) {
		c.registry = reg
	}
}

func (g *gnocker) serve(c *fiber.Ctx) {
	body, err := g.parseBody(c)
	if err != nil {
		g.logger.WithError(err).Error("failed to parse body")
		c.Status(http.StatusBadRequest).SendString(err.Error())
		return
	}

	req := mock.NewRequest(
		utils.ToUpper(c.Method()),
		utils.ImmutableString(c.Path()),
		string(c.Fasthttp.URI().QueryString()),
		requestHeaders(c),
		body,
	)

	for _, hook := range g.before {
		hook(c, req)
	}

	g.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL(),
	}).Debug("serving")

	res, err := g.engine.Resolve(req)
	switch {
	case errors.Is(err, mock.ErrNotFound):
		res = &mock.Response{Status: strconv.Itoa(http.StatusNotFound), Body: notFoundBody}
	case err != nil:
		c.Status(http.StatusInternalServerError).SendString(err.Error())
		return
	}

	for _, hook := range g.after {
		hook(c, req, res)
	}

	g.delay(res)
	g.send(c, res)
}

func (g *gnocker) send(c *fiber.Ctx, res *mock.Response) {
	status, err := strconv.Atoi(res.Status)
	if err != nil {
		g.logger.WithError(err).WithField("status", res.Status).Error("invalid status")
		c.Status(http.StatusInternalServerError).SendString(err.Error())
		return
	}

	c.Status(status)

	for _, h := range res.Headers {
		for i, value := range h.Values {
			// fasthttp parses Set-Cookie on Set, adding keeps every cookie in declaration order
			if i == 0 && h.Name != "Set-Cookie" {
				c.Set(h.Name, value)
				continue
			}
			c.Fasthttp.Response.Header.Add(h.Name, value)
		}
	}

	if res.Body != "" {
		c.SendString(res.Body)
	}
}

// delay stalls this request only: fiber serves every request on its own goroutine
func (g *gnocker) delay(res *mock.Response) {
	value := res.Header(DelayHeader)
	if value == "" {
		return
	}

	ms, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		g.logger.WithField("delay", value).Warn("ignoring invalid delay")
		return
	}

	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func requestHeaders(c *fiber.Ctx) http.Header {
	h := http.Header{}
	c.Fasthttp.Request.Header.VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})

	return h
}

func (g *gnocker) initAdminEndpoints() {
	g.logger.
		WithFields(logrus.Fields{
			http.MethodGet: []string{g.configBasePath, "/metrics"},
		}).Debug("admin endpoints")

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{}))

	g.adminApp.Get("/metrics", func(c *fiber.Ctx) {
		metricsHandler(c.Fasthttp)
	})

	g.adminApp.Get(g.configBasePath, func(c *fiber.Ctx) {
		c.Set("Content-Type", "application/json")

		err := encode.JSONIndented(map[string]interface{}{
			"settings": g.settings,
			"headers":  g.engine.Watched(),
			"parser":   g.bodyParser,
		}, c.Fasthttp.Response.BodyWriter())

		if err != nil {
			g.logger.WithError(err).Error("Failed to encode response")
			c.SendStatus(http.StatusInternalServerError)
			return
		}
	})
}
