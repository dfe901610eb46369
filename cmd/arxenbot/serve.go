package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"arxenbot/internal/chat"
	"arxenbot/internal/config"
	"arxenbot/internal/delivery"
	"arxenbot/internal/kb"
	"arxenbot/internal/metrics"
	"arxenbot/internal/pdf"
	"arxenbot/internal/server"
	"arxenbot/internal/store"
)

const (
	draftTTL         = 30 * 24 * time.Hour
	draftPurgeEvery  = time.Hour
	shutdownDeadline = 15 * time.Second
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	kbStore, err := kb.NewStore(cfg.KB.Dir, logger)
	if err != nil {
		return err
	}
	defer kbStore.Close()

	m := metrics.New()
	svc := chat.NewService(kbStore.Current(), chat.NewDispatcher(cfg.Estimate), m, logger)
	kbStore.OnReload(func(c *kb.Corpus, err error) {
		m.KBReload(err)
		if err == nil {
			svc.SetCorpus(c)
		}
	})
	if cfg.KB.Watch {
		if err := kbStore.Watch(ctx); err != nil {
			return err
		}
	}

	db, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer db.Close()

	submitter, err := newSubmitter(cfg, db, m, logger)
	if err != nil {
		return err
	}

	srv := server.New(server.Deps{
		Config:    *cfg,
		KB:        kbStore,
		Chat:      svc,
		Store:     db,
		Submitter: submitter,
		Metrics:   m,
		Logger:    logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeDrafts(gctx, db, logger)
		return nil
	})
	return g.Wait()
}

func newSubmitter(cfg *config.Config, rec delivery.Recorder, m *metrics.Metrics, logger *zap.Logger) (*delivery.Submitter, error) {
	email, err := delivery.NewEmailSender(cfg.Email, &http.Client{Timeout: cfg.Email.Timeout}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure email: %w", err)
	}
	return &delivery.Submitter{
		Email:    email,
		Relay:    &delivery.FormRelay{URL: cfg.Relay.URL, Timeout: cfg.Relay.Timeout},
		Recorder: rec,
		Metrics:  m,
		Logger:   logger,
		Company: pdf.Company{
			Name:    cfg.Estimate.CompanyName,
			Phone:   cfg.Estimate.OfficePhone,
			Email:   cfg.Estimate.SupportEmail,
			Website: cfg.Estimate.Website,
		},
		SupportEmail:  cfg.Estimate.SupportEmail,
		SafetyTimeout: cfg.Estimate.SafetyTimeout,
	}, nil
}

// purgeDrafts deletes stale drafts until ctx is done.
func purgeDrafts(ctx context.Context, db *store.Store, logger *zap.Logger) {
	ticker := time.NewTicker(draftPurgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PurgeDrafts(ctx, draftTTL)
			if err != nil {
				logger.Warn("failed to purge drafts", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("purged stale drafts", zap.Int64("count", n))
			}
		}
	}
}
