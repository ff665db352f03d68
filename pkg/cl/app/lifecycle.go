package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/pagekit/pkg/cl/logger"
)

// ShutdownTimeout bounds graceful shutdown of the server and components.
const ShutdownTimeout = 5 * time.Second

// Startable represents a component that can be started.
type Startable interface {
	Start(context.Context) error
}

// Stoppable represents a component that can be stopped.
type Stoppable interface {
	Stop(context.Context) error
}

// RouteRegistrar represents a component that registers HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(chi.Router)
}

// Lifecycle starts components in order and stops them in reverse.
type Lifecycle struct {
	starts     []func(context.Context) error
	stops      []func(context.Context) error
	registrars []RouteRegistrar
	started    int
	log        logger.Logger
}

// Setup inspects each component for Startable, Stoppable and RouteRegistrar.
// Components may implement any subset.
func Setup(log logger.Logger, comps ...any) *Lifecycle {
	l := &Lifecycle{log: log}
	for _, c := range comps {
		if rr, ok := c.(RouteRegistrar); ok {
			l.registrars = append(l.registrars, rr)
		}
		start := func(context.Context) error { return nil }
		if s, ok := c.(Startable); ok {
			start = s.Start
		}
		stop := func(context.Context) error { return nil }
		if st, ok := c.(Stoppable); ok {
			stop = st.Stop
		}
		// Starts and stops stay index-aligned so rollback stops exactly what started.
		l.starts = append(l.starts, start)
		l.stops = append(l.stops, stop)
	}
	return l
}

// Start runs every start function in order. If one fails, the components
// already started are stopped in reverse order and the error is returned.
// Routes are registered on router, when given, once everything started.
func (l *Lifecycle) Start(ctx context.Context, router chi.Router) error {
	for i, start := range l.starts {
		if err := start(ctx); err != nil {
			l.log.Errorf("error starting component #%d: %v", i, err)
			for j := i - 1; j >= 0; j-- {
				if rErr := l.stops[j](context.Background()); rErr != nil {
					l.log.Errorf("error stopping component #%d during rollback: %v", j, rErr)
				}
			}
			l.started = 0
			return err
		}
		l.started = i + 1
	}

	if router != nil {
		for _, rr := range l.registrars {
			rr.RegisterRoutes(router)
		}
	}
	return nil
}

// Stop stops the started components in reverse order (LIFO).
func (l *Lifecycle) Stop(ctx context.Context) {
	for i := l.started - 1; i >= 0; i-- {
		if err := l.stops[i](ctx); err != nil {
			l.log.Errorf("error stopping component #%d: %v", i, err)
		}
	}
	l.started = 0
}

// Serve runs an HTTP server on addr until ctx is done, then shuts it down
// gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log logger.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down gracefully, press Ctrl+C again to force")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
