package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/ephemera/internal/logger"
	"github.com/marmos91/ephemera/pkg/manager"
	"github.com/marmos91/ephemera/pkg/metrics"
	"github.com/marmos91/ephemera/pkg/session"
	"github.com/marmos91/ephemera/pkg/settings"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// provisioned is a running session started by a command, plus the files and
// servers that live as long as it does.
type provisioned struct {
	*session.Session

	written     []string
	stopMetrics context.CancelFunc
	metricsDone chan struct{}
}

// provision loads the inputs, serves metrics when enabled, starts a session
// and writes the patched settings to writePath when set.
//
// The returned value is non-nil whenever a session was attempted, so the
// caller can always release it with close.
func provision(ctx context.Context, writePath string) (*provisioned, error) {
	cfg, s, ov, err := loadInputs()
	if err != nil {
		return nil, err
	}
	opts := session.OptionsFromConfig(cfg)
	opts.Overrides = ov

	p := &provisioned{stopMetrics: func() {}}
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Metrics = metrics.New(reg)

		srv, err := metrics.NewServer(fmt.Sprintf(":%d", cfg.Metrics.Port), reg)
		if err != nil {
			return nil, err
		}
		var mctx context.Context
		mctx, p.stopMetrics = context.WithCancel(context.WithoutCancel(ctx))
		p.metricsDone = make(chan struct{})
		go func() {
			defer close(p.metricsDone)
			if err := srv.Start(mctx); err != nil {
				logger.Error("Metrics server stopped", logger.Err(err))
			}
		}()
	}

	p.Session, err = session.Start(ctx, s, opts)
	if err != nil {
		return p, err
	}

	if writePath != "" {
		if err := settings.Save(writePath, s); err != nil {
			return p, err
		}
		p.written = append(p.written, writePath)
		logger.Info("Wrote patched settings", logger.KeyPath, writePath)
	}
	return p, nil
}

// track registers a file to remove when the session ends.
func (p *provisioned) track(path string) {
	p.written = append(p.written, path)
}

// close ends the session, removes the files written for it and stops the
// metrics server. Stop failures are returned joined.
func (p *provisioned) close(ctx context.Context) error {
	var err error
	if p.Session != nil {
		err = manager.StopError(p.End(context.WithoutCancel(ctx)))
	}
	for _, path := range p.written {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("Failed to remove file", logger.KeyPath, path, logger.Err(rmErr))
		}
	}
	p.stopMetrics()
	if p.metricsDone != nil {
		<-p.metricsDone
	}
	return err
}

// view returns the printable state of the session.
func (p *provisioned) view() SessionView {
	return SessionView{
		ID:        p.ID(),
		Services:  p.Services(),
		Variables: p.Env(""),
	}
}
