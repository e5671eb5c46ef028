// Package outreach provides a high-level façade over the session manager
// and its services (session store, sent ledger, uploads, configuration &
// logging) enabling rapid construction of an outreach engine. Most
// applications interact with this package by:
//  1. Creating an Outreach via New() (optionally overriding default in-memory services)
//  2. Driving workflows through Manager() or mounting Handler() on an HTTP server
//
// All defaults are safe for local development and testing; production
// deployments typically supply a Redis session store, a hosted-model
// generator and a structured logger.
package outreach

import (
	"net/http"

	"github.com/creatorops/outreach/config"
	"github.com/creatorops/outreach/core"
	"github.com/creatorops/outreach/generator"
	"github.com/creatorops/outreach/interrupt"
	"github.com/creatorops/outreach/ledger"
	"github.com/creatorops/outreach/logging"
	"github.com/creatorops/outreach/manager"
	"github.com/creatorops/outreach/scraper"
	"github.com/creatorops/outreach/server"
	"github.com/creatorops/outreach/session"
	"github.com/creatorops/outreach/uploads"
	"github.com/creatorops/outreach/workflow"
)

// Options configures the Outreach instance.
type Options struct {
	// Config is the persisted configuration document; defaults to an
	// in-memory document with defaults when no path is supplied.
	Config *config.Store

	// Collaborators (default to offline/in-memory implementations if not
	// provided).
	Generator core.Generator
	Scraper   core.Scraper
	Sender    core.MessageSender

	// Stores (default to in-memory implementations if not provided).
	SessionStore core.SessionStore
	Ledger       core.SentLedger
	Uploads      core.UploadStore

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Outreach is the high-level façade aggregating the manager and services.
type Outreach struct {
	opts     Options
	manager  *manager.Manager
	executor *workflow.Executor
	server   *server.Server
}

// New creates a new Outreach instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) (*Outreach, error) {
	opts := Options{
		Generator:    generator.NewTemplateGenerator(),
		SessionStore: session.NewInMemoryStore(),
		Ledger:       ledger.NewInMemoryLedger(),
		Uploads:      uploads.NewInMemoryStore(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Config == nil {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		opts.Config = cfg
	}
	if opts.Scraper == nil {
		opts.Scraper = scraper.NewClient()
	}
	if opts.Sender == nil {
		// Send through the same bridge when the scraper is one; otherwise a
		// bridge with default settings.
		if bridge, ok := opts.Scraper.(*scraper.Client); ok {
			opts.Sender = scraper.NewSender(bridge)
		} else {
			opts.Sender = scraper.NewSender(scraper.NewClient())
		}
	}

	executor := workflow.New(workflow.Deps{
		Config:    opts.Config,
		Generator: opts.Generator,
		Scraper:   opts.Scraper,
		Sender:    opts.Sender,
		Ledger:    opts.Ledger,
		Uploads:   opts.Uploads,
		Broker:    interrupt.NewBroker(),
	}, func(o *workflow.Options) {
		o.Logger = opts.Logger
	})

	mgr := manager.New(opts.SessionStore, executor, func(o *manager.Options) {
		o.Logger = opts.Logger
	})

	srv := server.New(mgr, opts.Uploads, opts.Config, func(o *server.Options) {
		o.Logger = opts.Logger
		o.Workflows = executor.Kinds()
	})

	return &Outreach{
		opts:     opts,
		manager:  mgr,
		executor: executor,
		server:   srv,
	}, nil
}

// Manager returns the session manager façade.
func (o *Outreach) Manager() *manager.Manager { return o.manager }

// Executor returns the workflow step executor.
func (o *Outreach) Executor() *workflow.Executor { return o.executor }

// Handler returns the dashboard HTTP route table.
func (o *Outreach) Handler() http.Handler { return o.server.Handler() }
