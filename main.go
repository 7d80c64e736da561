package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	catalog "github.com/CodeAndHammer/upjguesser/internal/catalog"
	config "github.com/CodeAndHammer/upjguesser/internal/config"
	game "github.com/CodeAndHammer/upjguesser/internal/game"
	handlers "github.com/CodeAndHammer/upjguesser/internal/handlers"
	identity "github.com/CodeAndHammer/upjguesser/internal/identity"
	leaderboard "github.com/CodeAndHammer/upjguesser/internal/leaderboard"
	session "github.com/CodeAndHammer/upjguesser/internal/session"
	storage "github.com/CodeAndHammer/upjguesser/internal/storage"
	util "github.com/CodeAndHammer/upjguesser/internal/util"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		util.LogFatal("%v", err)
	}
	util.LogInfo("Server shutdown complete")
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	isProduction := cfg.IsProduction()
	util.LogInfo("Starting UPJ GeoGuesser in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	locations, err := catalog.Load(cfg.LocationsFile)
	if err != nil {
		return fmt.Errorf("loading locations: %w", err)
	}
	util.LogInfo("Loaded %d location%s from %s", locations.Len(), util.Plural(locations.Len()), cfg.LocationsFile)

	blobs, err := storage.Open(ctx, storage.Options{
		Driver:      cfg.StoreDriver,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.SQLitePath,
		RedisURL:    cfg.RedisURL,
		RedisPrefix: cfg.RedisPrefix,
	})
	if err != nil {
		return fmt.Errorf("opening %s store: %w", cfg.StoreDriver, err)
	}
	defer blobs.Close()
	util.LogInfo("Using %s store", cfg.StoreDriver)

	board, err := leaderboard.Open(ctx, blobs)
	if err != nil {
		return fmt.Errorf("opening leaderboard: %w", err)
	}

	gate := identity.NewGate(board)
	sessions := session.NewManager(func() *game.Engine {
		return game.NewEngine(locations, gate, board, cfg.RoundTick)
	}, cfg.CookieMaxAge, cfg.SessionTTL, isProduction)
	defer sessions.CloseAll()

	limiters := newLimiterPool(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.RateLimiterTTL)

	app := &handlers.App{
		Sessions:       sessions,
		Leaderboard:    board,
		Catalog:        locations,
		IsProduction:   isProduction,
		StartTime:      time.Now(),
		AdminToken:     cfg.AdminToken,
		ActiveLimiters: limiters.Len,
	}
	if cfg.AdminToken == "" {
		util.LogWarn("ADMIN_TOKEN is not set; the used-email reset route is open")
	}

	router, err := newRouter(cfg, app, limiters)
	if err != nil {
		return err
	}

	sessions.StartSessionCleanup(ctx, 10*time.Minute)
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiters.cleanup()
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		util.LogInfo("Server starting on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(cfg *config.Config, app *handlers.App, limiters *limiterPool) (*gin.Engine, error) {
	router := gin.Default()

	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())

	router.Use(csrfMiddleware(cfg.CookieMaxAge, app.IsProduction))
	router.Use(validateCSRFMiddleware())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/ws"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(cacheHeadersMiddleware(app.IsProduction, cfg.StaticCacheAge))

	baseTplDir := "templates"
	if app.IsProduction && util.DirExists("dist") {
		util.LogInfo("Serving assets from dist/ directory")
		baseTplDir = filepath.ToSlash(filepath.Join("dist", "templates"))
		router.Static("/static", "./dist/static")
	} else {
		util.LogInfo("Serving development assets from source directories")
		router.Static("/static", "./static")
	}
	router.Static("/images", "./images")

	funcMap := template.FuncMap{"hasPrefix": strings.HasPrefix}
	master := template.New("").Funcs(funcMap)
	if _, err := master.ParseGlob(filepath.ToSlash(filepath.Join(baseTplDir, "*.html"))); err != nil {
		return nil, fmt.Errorf("parsing root templates: %w", err)
	}
	if _, err := master.ParseGlob(filepath.ToSlash(filepath.Join(baseTplDir, "partials", "*.html"))); err != nil {
		return nil, fmt.Errorf("parsing partial templates: %w", err)
	}
	router.SetHTMLTemplate(master)

	handlers.Register(router, app, limiters.middleware())
	return router, nil
}
