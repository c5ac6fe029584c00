package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bhumi3292/VaultLease-sub001/app"
	"github.com/bhumi3292/VaultLease-sub001/config"
	"github.com/bhumi3292/VaultLease-sub001/controllers"
	"github.com/bhumi3292/VaultLease-sub001/mailer"
	"github.com/bhumi3292/VaultLease-sub001/routes"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()

	application := app.MustNew(cfg)
	defer application.Close()
	logger := application.Log

	// 邮件异步发送，请求不等 SMTP
	mail := mailer.NewDispatcher(mailer.NewSMTPSender(cfg.SMTP, logger), logger, 2, 256)
	defer mail.Close()

	srv := controllers.NewSrv(application, mail)
	routes.RegisterRoutes(application.Router, application, srv)

	if _, err := app.BootstrapFirstAdmin(context.Background(), cfg, application.Repo, logger); err != nil {
		logger.Error("bootstrap admin failed", "err", err)
	}

	if err := srv.Sweeper.Start(); err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	defer srv.Sweeper.Stop()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", httpSrv.Addr, "env", cfg.Env)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "err", err)
	}
	logger.Info("server stopped")
}
