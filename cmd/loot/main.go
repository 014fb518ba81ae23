package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"loot-tracker/internal/applications"
	"loot-tracker/internal/auctions"
	"loot-tracker/internal/auth"
	"loot-tracker/internal/bosses"
	"loot-tracker/internal/bosskills"
	"loot-tracker/internal/guild"
	"loot-tracker/internal/menus"
	"loot-tracker/internal/notifications"
	"loot-tracker/internal/scheduler"
	schedulerServices "loot-tracker/internal/scheduler/services"
	"loot-tracker/internal/uploads"
	uploadModels "loot-tracker/internal/uploads/models"
	"loot-tracker/internal/users"
	"loot-tracker/internal/votes"
	"loot-tracker/internal/wallet"
	"loot-tracker/internal/websocket"
	"loot-tracker/pkg/app"
	"loot-tracker/pkg/config"
	"loot-tracker/pkg/database"
	"loot-tracker/pkg/handlers"
	"loot-tracker/pkg/metrics"
	lootMiddleware "loot-tracker/pkg/middleware"
	"loot-tracker/pkg/module"
	"loot-tracker/pkg/version"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "go.uber.org/automaxprocs"
)

const serviceName = "loot-tracker"

// quietLogger logs requests except health checks and metric scrapes
func quietLogger(next http.Handler) http.Handler {
	logged := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		logged.ServeHTTP(w, r)
	})
}

// mountedModule pairs a module with the base path of its huma operations
type mountedModule struct {
	module   module.Module
	basePath string
}

func main() {
	log.Printf("Loot tracker %s | CPUs: %d | GOMAXPROCS: %d", version.Get(), runtime.NumCPU(), runtime.GOMAXPROCS(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appCtx, err := app.InitializeApp(ctx, serviceName)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	var tx database.TxRunner = appCtx.MongoDB
	if !config.GetBoolEnv("MONGODB_TRANSACTIONS", true) {
		slog.Warn("MongoDB transactions disabled, multi-document writes are serialized in process")
		tx = &database.SerialTxRunner{}
	}

	mongodb, redis := appCtx.MongoDB, appCtx.Redis

	guildModule := guild.New(mongodb, redis)
	usersModule := users.New(mongodb, redis, guildModule.GetService())
	authModule, err := auth.New(mongodb, redis, usersModule.GetRepository())
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	authz := authModule.GetMiddleware()
	guildModule.SetAuth(authz)
	usersModule.SetAuth(authz)

	walletModule := wallet.New(mongodb, redis, tx, authz)
	notificationsModule := notifications.New(mongodb, redis, authz)
	notifier := notificationsModule.GetService()
	bossesModule := bosses.New(mongodb, redis, authz)

	bossKillsModule := bosskills.New(mongodb, redis, authz, bosskills.Dependencies{
		Tx:       tx,
		Bosses:   bossesModule.GetService(),
		Settings: guildModule.GetService(),
		Users:    usersModule.GetRepository(),
		Notifier: notifier,
		Rewarder: walletModule.GetService(),
	})
	bossesModule.GetService().SetKillCounter(bossKillsModule.GetRepository())

	applicationsModule := applications.New(mongodb, redis, authz, tx,
		bossKillsModule.GetRepository(), usersModule.GetRepository(), notifier)
	bossKillsModule.GetService().SetApplications(applicationsModule.GetService())
	usersModule.GetService().SetApplications(applicationsModule.GetService())

	auctionsModule := auctions.New(mongodb, redis, authz, auctions.Dependencies{
		Tx:       tx,
		Kills:    bossKillsModule.GetRepository(),
		Wallet:   walletModule.GetService(),
		Settings: guildModule.GetService(),
		Notifier: notifier,
	})

	websocketModule := websocket.New(mongodb, redis, authModule.GetAuthService(), authz)
	votesModule := votes.New(mongodb, redis, authz, notifier)
	menusModule := menus.New(authz)

	uploadsModule, err := uploads.New(config.GetUploadDir(), config.GetUploadMaxBytes(), authz)
	if err != nil {
		log.Fatalf("Failed to initialize uploads: %v", err)
	}

	schedulerModule, err := scheduler.New(mongodb, redis, authz, schedulerServices.Sweepers{
		Items:    bossKillsModule.GetService(),
		Auctions: auctionsModule.GetService(),
		Users:    usersModule.GetService(),
		Votes:    votesModule.GetService(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	mounted := []mountedModule{
		{authModule, "/auth"},
		{usersModule, "/users"},
		{guildModule, "/guild"},
		{walletModule, "/wallet"},
		{notificationsModule, "/notifications"},
		{bossesModule, "/bosses"},
		{bossKillsModule, "/boss-kills"},
		{applicationsModule, "/applications"},
		{auctionsModule, "/auctions"},
		{websocketModule, "/live"},
		{votesModule, "/votes"},
		{menusModule, "/menus"},
		{uploadsModule, "/uploads"},
		{schedulerModule, "/scheduler"},
	}

	r := chi.NewRouter()
	r.Use(quietLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(lootMiddleware.CORS(config.GetCORSOrigins()))
	r.Use(lootMiddleware.TracingMiddleware(serviceName))

	healthChecks := map[string]handlers.HealthChecker{"mongodb": appCtx.MongoDB}
	if appCtx.Redis != nil {
		healthChecks["redis"] = appCtx.Redis
	}
	r.Get("/health", handlers.HealthHandler(healthChecks))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle(uploadModels.PublicPath+"/*", uploadsModule.StaticHandler())

	humaConfig := huma.DefaultConfig("Loot Tracker API", version.Version)
	humaConfig.Info.Description = "Guild loot distribution: boss kills, applications, auctions and the DKP economy"
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"authToken": {
			Type: "apiKey",
			In:   "header",
			Name: "x-auth-token",
		},
	}

	apiPrefix := config.GetAPIPrefix()
	mountAPI := func(api chi.Router) {
		// Raw routes first, then the JSON API. The websocket upgrade must not sit behind a timeout.
		for _, m := range mounted {
			m.module.Routes(api)
		}
		api.Group(func(timed chi.Router) {
			timed.Use(middleware.Timeout(60 * time.Second))
			unified := humachi.New(timed, humaConfig)
			for _, m := range mounted {
				m.module.RegisterUnifiedRoutes(unified, m.basePath)
			}
		})
	}
	if apiPrefix == "" {
		mountAPI(r)
	} else {
		r.Route(apiPrefix, mountAPI)
	}

	for _, m := range mounted {
		go m.module.StartBackgroundTasks(ctx)
	}

	host, port := config.GetHost(), app.GetPort("8080")
	srv := &http.Server{
		Addr:              host + ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("Starting loot tracker server", "addr", srv.Addr, "api_prefix", apiPrefix, "openapi", apiPrefix+"/openapi.json")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Received shutdown signal, initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	for _, m := range mounted {
		m.module.Stop()
	}
	cancel()

	appCtx.Shutdown(shutdownCtx)
	slog.Info("Loot tracker shutdown completed")
}
