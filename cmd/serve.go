package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/cache"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/database"
	"github.com/yeremiapane/fuji-pos/router"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

func serveCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := bootstrap()
			if err != nil {
				return err
			}
			if autoMigrate {
				if err := database.Migrate(db); err != nil {
					return err
				}
			}
			return serve(cfg, db)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", true, "Run migrations before serving")
	return cmd
}

func serve(cfg *config.Config, db *gorm.DB) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store := openCache(cfg)

	var gateway services.PaymentGateway
	if cfg.MidtransServerKey != "" {
		mt, err := services.NewMidtransGateway(cfg.MidtransServerKey, cfg.MidtransEnv)
		if err != nil {
			return err
		}
		gateway = mt
	} else {
		utils.InfoLogger.Println("MIDTRANS_SERVER_KEY not set, QRIS payments disabled")
	}

	audits := services.NewAuditRecorder(db, 0)
	audits.Start()
	defer audits.Stop()

	deps := router.NewDependencies(db, cfg, store, gateway, audits)

	paymentMonitor := services.NewPaymentMonitor(deps.Payments, time.Minute)
	paymentMonitor.Start()
	defer paymentMonitor.Stop()

	dashboardMonitor := services.NewDashboardMonitor(deps.Analytics, cfg.Settings.DashboardRefresh)
	dashboardMonitor.Start()
	defer dashboardMonitor.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		utils.InfoLogger.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// openCache prefers Redis and falls back to an in-process store when Redis is unset or down.
func openCache(cfg *config.Config) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemoryStore()
	}
	rs := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		utils.ErrorLogger.Printf("Redis at %s unavailable, using in-memory cache: %v", cfg.RedisAddr, err)
		_ = rs.Close()
		return cache.NewMemoryStore()
	}
	utils.InfoLogger.Printf("Connected to Redis at %s", cfg.RedisAddr)
	return rs
}
