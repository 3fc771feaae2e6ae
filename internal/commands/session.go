package commands

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/authclient/config"
	"github.com/gaborage/authclient/httpclient"
	"github.com/gaborage/authclient/logger"
	"github.com/gaborage/authclient/observability"
	"github.com/gaborage/authclient/tokenstore"
)

// session bundles what a command needs to talk to the service
type session struct {
	cfg    *config.Config
	log    logger.Logger
	store  tokenstore.Store
	closer io.Closer
	telem  observability.Provider
	client httpclient.Client
}

const telemetryFlushTimeout = 5 * time.Second

// openSession loads configuration, opens the token store and builds the client.
// A store configured as "none" leaves the client anonymous.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Client.Debug = true
	}

	log := cfg.Logger(cmd.ErrOrStderr()).WithFields(map[string]any{"component": "authclient"})

	store, closer, err := cfg.OpenTokenStore()
	if err != nil && !config.IsNotConfigured(err) {
		return nil, err
	}
	if closer == nil {
		closer = nopCloser{}
	}

	telem, err := observability.NewProvider(&cfg.Observability, cmd.ErrOrStderr())
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	clientCfg := cfg.ClientConfig(store)
	clientCfg.Transport = opts.transport
	clientCfg.TracerProvider = telem.TracerProvider()
	clientCfg.MeterProvider = telem.MeterProvider()
	clientCfg.Propagator = telem.Propagator()

	return &session{
		cfg:    cfg,
		log:    log,
		store:  store,
		closer: closer,
		telem:  telem,
		client: httpclient.NewClient(clientCfg, log),
	}, nil
}

// Close flushes telemetry and releases the token store
func (s *session) Close() error {
	return errors.Join(
		observability.Shutdown(s.telem, telemetryFlushTimeout),
		s.closer.Close(),
	)
}

// requireStore reports a clear error for token commands run without a store
func (s *session) requireStore() (tokenstore.Store, error) {
	if s.store == nil {
		return nil, errors.New("no token store configured: set token.store to memory, file or redis")
	}
	return s.store, nil
}

// explain rewrites client errors into actionable command errors
func explain(err error) error {
	if httpclient.IsErrorType(err, httpclient.ExpiredTokenError) {
		return errors.New("session expired and was removed; run 'authclient token set <token>' to sign in again")
	}
	return err
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
