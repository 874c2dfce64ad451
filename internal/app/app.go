// Package app arma el proceso a partir de la configuración: store, notifier,
// fire guard, scheduler, reconciler y servidor HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	redisguard "medicine-reminder/internal/adapters/dedup/redis"
	"medicine-reminder/internal/adapters/notify/console"
	"medicine-reminder/internal/adapters/notify/smtp"
	"medicine-reminder/internal/adapters/notify/webhook"
	mem "medicine-reminder/internal/adapters/storage/memory"
	pg "medicine-reminder/internal/adapters/storage/postgres"
	"medicine-reminder/internal/adapters/storage/sqlite"
	"medicine-reminder/internal/config"
	"medicine-reminder/internal/domain/medicines"
	"medicine-reminder/internal/domain/reminders"
	"medicine-reminder/internal/platform/httpclient"
	"medicine-reminder/internal/platform/logger"
	"medicine-reminder/internal/ports/dedup"
	"medicine-reminder/internal/ports/notify"
	"medicine-reminder/internal/router"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	cfg *config.Config
	log logger.Logger
	loc *time.Location

	repo      medicines.Repository
	scheduler *reminders.Scheduler
	svc       *medicines.Service

	closers []func() error
}

// New abre las dependencias. Si algo falla, cierra lo que ya se abrió.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, loc: loc}

	repo, closeStore, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	a.repo = repo
	a.closers = append(a.closers, closeStore)

	n, err := NewNotifier(cfg.Notifier, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var guard dedup.Guard
	if cfg.Redis.Addr != "" {
		g, err := redisguard.New(redisguard.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if err := g.Ping(ctx); err != nil {
			// sin guard se envía igual; solo se pierde la deduplicación entre réplicas
			log.Warn("redis unavailable at startup", map[string]any{"error": err})
		}
		guard = g
		a.closers = append(a.closers, g.Close)
	}

	sched, err := reminders.NewScheduler(reminders.Options{
		LeadTime:     cfg.Reminder.LeadTime,
		Notifier:     n,
		Recorder:     repo,
		Guard:        guard,
		GuardTTL:     cfg.Reminder.DedupTTL,
		Logger:       log,
		SendTimeout:  cfg.Reminder.SendTimeout,
		MaxRetries:   cfg.Reminder.MaxRetries,
		RetryBackoff: cfg.Reminder.RetryBackoff,
		Workers:      cfg.Reminder.Workers,
		Location:     loc,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.scheduler = sched
	a.svc = medicines.NewService(repo, sched)

	return a, nil
}

// OpenStore devuelve el repositorio según store.driver y una función para
// liberarlo. Los drivers SQL aplican el schema al abrir.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (medicines.Repository, func() error, error) {
	switch cfg.Driver {
	case config.StorePostgres:
		db, err := pg.Open(cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return pg.NewMedicinesRepo(db), db.Close, nil
	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewMedicinesRepo(db), db.Close, nil
	case config.StoreMemory, "":
		return mem.NewMedicinesRepo(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func NewNotifier(cfg config.NotifierConfig, log logger.Logger) (notify.Notifier, error) {
	switch cfg.Kind {
	case config.NotifierSMTP:
		return smtp.New(smtp.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Secret,
			From:     cfg.From,
			Timeout:  cfg.Timeout,
		})
	case config.NotifierWebhook:
		return webhook.New(cfg.WebhookURL, nil, httpclient.New(cfg.Timeout))
	case config.NotifierConsole, "":
		return console.New(log), nil
	default:
		return nil, fmt.Errorf("%w: unknown notifier kind %q", notify.ErrNotConfigured, cfg.Kind)
	}
}

// Handler expone el router HTTP ya cableado al servicio.
func (a *App) Handler() http.Handler {
	return router.NewRouter(router.Options{
		Service:  a.svc,
		Logger:   a.log,
		Location: a.loc,
	})
}

// Recover re-adopta los recordatorios que el store tiene como pendientes.
func (a *App) Recover(ctx context.Context) (reminders.RecoveryReport, error) {
	return a.scheduler.Recover(ctx, a.repo)
}

// Run recupera, arranca el scheduler, el reconciler y el servidor HTTP, y
// bloquea hasta que ctx se cancele o el servidor falle. Al salir apaga todo
// en orden: HTTP, reconciler, scheduler.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Recover(ctx); err != nil {
		// arrancar igual: lo nuevo se programa y el reconciler reintenta
		a.log.Error("reminder recovery failed", map[string]any{"error": err})
	}

	schedCtx, cancelSched := context.WithCancel(context.Background())
	defer cancelSched()
	a.scheduler.Start(schedCtx)

	var recon *reminders.Reconciler
	if a.cfg.Reminder.Reconcile != "" {
		r, err := reminders.NewReconciler(a.cfg.Reminder.Reconcile, a.scheduler, a.repo, a.log)
		if err != nil {
			_ = a.scheduler.Stop(context.Background())
			return err
		}
		recon = r
		recon.Start()
	}

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", map[string]any{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("http shutdown", map[string]any{"error": err})
	}
	if recon != nil {
		if err := recon.Stop(shutdownCtx); err != nil {
			a.log.Warn("reconciler shutdown", map[string]any{"error": err})
		}
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.log.Warn("scheduler shutdown", map[string]any{"error": err})
	}

	a.log.Info("server stopped", nil)
	return runErr
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
