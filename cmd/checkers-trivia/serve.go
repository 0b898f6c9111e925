package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jaminalder/trivia-checkers/internal/app"
	"github.com/jaminalder/trivia-checkers/internal/obslog"
	"github.com/jaminalder/trivia-checkers/internal/trivia"
	"github.com/jaminalder/trivia-checkers/internal/web"
)

const timeout time.Duration = 10 * time.Second

// loadBank returns the operator bank when configured, the built-in one
// otherwise, refilled from the Open Trivia DB when enabled.
func loadBank(ctx context.Context, cfg *Config) (*trivia.Bank, error) {
	var (
		bank *trivia.Bank
		err  error
	)
	if cfg.questions != "" {
		bank, err = trivia.LoadFile(cfg.questions)
	} else {
		bank, err = trivia.LoadEmbedded()
	}
	if err != nil {
		return nil, err
	}
	if cfg.opentdb {
		client := trivia.NewOpenTDB(cfg.opentdbURL,
			trivia.WithTimeout(timeout),
			trivia.WithCategory(cfg.opentdbCategory),
		)
		if err := client.Refill(ctx, bank, cfg.opentdbAmount); err != nil {
			obslog.L().Warn("opentdb refill failed, keeping local questions", zap.Error(err))
		} else {
			obslog.L().Info("opentdb refill", zap.Int("questions", bank.Len()))
		}
	}
	return bank, nil
}

func newService(ctx context.Context, cfg *Config) (*app.Service, error) {
	bank, err := loadBank(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	return app.NewService(
		app.WithQuestions(bank),
		app.WithChallengeTimeout(cfg.challengeTimeout),
		app.WithRules(cfg.rules()),
	), nil
}

// Serve runs the HTTP server until ctx is done.
func Serve(ctx context.Context, cfg *Config) error {
	if err := obslog.Init(obslog.Options{Level: cfg.logLevel, Format: cfg.logFormat, File: cfg.logFile}); err != nil {
		return err
	}
	defer obslog.Sync()
	log := obslog.L()

	log.Info("start", zap.String("version", releaseVersion))

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.sessionTimeout > 0 {
		every := cfg.sessionTimeout / 4
		if every < time.Minute {
			every = time.Minute
		}
		go svc.RunReaper(ctx, every, cfg.sessionTimeout)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           web.NewServer(svc),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", "http://"+srv.Addr+"/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		if err != nil {
			log.Error("serve", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("stop")

	return nil
}
