package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pokernight/internal/api"
	"pokernight/internal/config"
	"pokernight/internal/middleware"
	"pokernight/internal/repo"
	"pokernight/internal/service"
	"pokernight/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), config.GlobalConfig)
		},
	}
}

func serve(ctx context.Context, conf *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Info("Starting server...", zap.String("mode", conf.Server.Mode))

	if err := repo.InitDB(conf.Database.DSN); err != nil {
		return err
	}
	if conf.Roster.Store == config.RosterStoreRedis {
		if err := repo.InitRedis(conf.Redis); err != nil {
			return err
		}
		defer repo.RDB.Close()
	}

	services := service.NewContainer(repo.DB, repo.RDB, conf)

	if conf.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	api.RegisterRoutes(r, services)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", conf.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Log.Error("Server failed to start", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
