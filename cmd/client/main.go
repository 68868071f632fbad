package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/app/clientapp"
	"github.com/aafarian/hantibink-sub003/internal/app/stubapp"
	"github.com/aafarian/hantibink-sub003/internal/config"
	"github.com/aafarian/hantibink-sub003/internal/infra/logger"
)

// Headless shell around the client core. Signs in, loads the incoming
// likes list and then tails the live channel, logging every notice until
// interrupted. A real UI embeds clientapp the same way.
func main() {
	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Env, cfg.Log.Level)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := clientapp.New(cfg, log, clientapp.Options{})
	if err != nil {
		log.Fatal("create client app", zap.Error(err))
	}

	if err := app.Run(ctx); err != nil {
		log.Fatal("start client app", zap.Error(err))
	}

	if _, ok := app.Sessions.Current(); !ok {
		email := os.Getenv("HANTIBINK_EMAIL")
		password := os.Getenv("HANTIBINK_PASSWORD")
		if email == "" {
			email, password = stubapp.DemoEmail, stubapp.DemoPassword
		}
		if err := app.Sessions.LogIn(ctx, email, password); err != nil {
			log.Fatal("sign in", zap.Error(err))
		}
		if err := app.ConnectRealtime(ctx); err != nil {
			log.Fatal("connect realtime", zap.Error(err))
		}
	}

	if err := app.Inbox.Load(ctx); err != nil {
		log.Warn("initial likes load failed", zap.Error(err))
	}
	snapshot := app.Inbox.Snapshot()
	log.Info("liked you list loaded",
		zap.Int("visible", len(snapshot.Items)),
		zap.Int("total", snapshot.TotalCount),
		zap.Bool("has_more", snapshot.HasMore),
	)

	for {
		select {
		case <-ctx.Done():
			if err := app.Shutdown(); err != nil {
				log.Error("shutdown client app", zap.Error(err))
			}
			return
		case notice := <-app.Notices.C():
			log.Info("notice",
				zap.String("level", string(notice.Level)),
				zap.String("text", notice.Text),
			)
		}
	}
}
