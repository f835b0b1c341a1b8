// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Command server is the NeXroll pre-roll decision engine entrypoint.
//
// Startup order, mirroring the teacher's sequential component bring-up in
// its own cmd/server/main.go:
//
//  1. Load configuration (Koanf: defaults -> YAML file -> env vars).
//  2. Initialize structured logging.
//  3. Open the DuckDB-backed Store, seeding its Setting singleton from the
//     configured Plex/Jellyfin credentials on first boot (§6.7).
//  4. Build the Plex/Jellyfin ServerAdapters and the HolidayAPI client.
//  5. Build the ControlLoop and, if configured, the optional event-bus
//     publisher.
//  6. Build the management API (chi router, optional Basic Auth) and the
//     *http.Server.
//  7. Assemble the two-layer suture supervisor tree (engine, api) and start
//     the ControlLoop through the scheduler facade.
//  8. Block on the supervisor tree until SIGINT/SIGTERM, then drain
//     everything in reverse order.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/nexroll/nexroll/internal/api"
	"github.com/nexroll/nexroll/internal/auth"
	"github.com/nexroll/nexroll/internal/cache"
	"github.com/nexroll/nexroll/internal/config"
	"github.com/nexroll/nexroll/internal/controlloop"
	"github.com/nexroll/nexroll/internal/eventbus"
	"github.com/nexroll/nexroll/internal/holidayapi"
	"github.com/nexroll/nexroll/internal/logging"
	"github.com/nexroll/nexroll/internal/serveradapter"
	"github.com/nexroll/nexroll/internal/store"
	"github.com/nexroll/nexroll/internal/supervisor"
	"github.com/nexroll/nexroll/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg *config.Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := st.Checkpoint(shutdownCtx); err != nil {
			logging.Warn().Err(err).Str("component", "main").Msg("final checkpoint failed")
		}
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Str("component", "main").Msg("store close failed")
		}
	}()

	if err := seedSettingFromConfig(context.Background(), st, cfg); err != nil {
		return fmt.Errorf("seed setting: %w", err)
	}

	plexAdapter, jellyAdapter := buildAdapters(cfg)

	primary, err := choosePrimaryAdapter(plexAdapter, jellyAdapter)
	if err != nil {
		return err
	}

	holidays := buildHolidayClient(cfg)

	loop := controlloop.New(st, primary, holidays.Lookup, controlloop.Config{
		TickInterval:   cfg.ControlLoop.TickInterval,
		VerifyInterval: cfg.ControlLoop.VerifyInterval,
		RotateInterval: cfg.ControlLoop.RotationInterval,
		CaseSensitive:  runtime.GOOS != "windows",
	})

	var publisher eventbus.Publisher = eventbus.NopPublisher{}
	var natsPublisher *eventbus.NATSPublisher
	if cfg.EventBus.Enabled {
		natsPublisher, err = eventbus.New(eventbus.Config{
			URL:            cfg.EventBus.URL,
			EmbeddedServer: cfg.EventBus.EmbeddedServer,
			StoreDir:       cfg.EventBus.StoreDir,
			PublishTimeout: cfg.EventBus.PublishTimeout,
		})
		if err != nil {
			return fmt.Errorf("start event bus: %w", err)
		}
		publisher = natsPublisher
		defer func() {
			if err := natsPublisher.Close(); err != nil {
				logging.Warn().Err(err).Str("component", "main").Msg("event bus close failed")
			}
		}()
	}
	loop.SetEventPublisher(publisher)

	var authManager *auth.BasicAuthManager
	if cfg.AuthEnabled() {
		authManager, err = auth.NewBasicAuthManager(cfg.Security.AdminUsername, cfg.Security.AdminPassword)
		if err != nil {
			return fmt.Errorf("configure basic auth: %w", err)
		}
	}

	handler := api.NewHandler(st, loop, plexAdapter, jellyAdapter, cfg.Plex.WebhookSecret)
	mw := api.NewMiddleware(api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	router := api.NewRouter(handler, authManager, mw)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.New(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))
	if natsPublisher != nil {
		tree.AddEngineService(natsPublisher)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler.StartScheduler(ctx)
	defer handler.StopScheduler()

	logging.Info().
		Str("component", "main").
		Str("addr", httpServer.Addr).
		Bool("auth_enabled", cfg.AuthEnabled()).
		Bool("eventbus_enabled", cfg.EventBus.Enabled).
		Msg("nexroll starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Str("component", "main").Msg("services did not stop cleanly")
	}

	logging.Info().Str("component", "main").Msg("nexroll stopped")
	return nil
}

// openStore wires the optional credential encryptor (cfg.Store.CredentialSecret)
// into the Store, per §6.7's "tokens held encrypted at rest when a secret is
// configured" requirement.
func openStore(cfg *config.Config) (*store.Store, error) {
	var encryptor store.CredentialEncryptor
	if cfg.Store.CredentialSecret != "" {
		enc, err := config.NewCredentialEncryptor(cfg.Store.CredentialSecret)
		if err != nil {
			return nil, fmt.Errorf("build credential encryptor: %w", err)
		}
		encryptor = enc
	}

	return store.New(store.Config{
		Path:      cfg.Store.Path,
		MaxMemory: cfg.Store.MaxMemory,
		Threads:   cfg.Store.Threads,
		Encryptor: encryptor,
	})
}

// seedSettingFromConfig fills the Setting singleton's connection fields from
// Config on first boot only: once an operator has set a URL/token through
// the management API, Config's copy is never allowed to overwrite it on a
// later restart.
func seedSettingFromConfig(ctx context.Context, st *store.Store, cfg *config.Config) error {
	setting, err := st.GetSetting(ctx)
	if err != nil {
		return err
	}

	changed := false
	if setting.PlexURL == "" && cfg.Plex.URL != "" {
		setting.PlexURL = cfg.Plex.URL
		changed = true
	}
	if setting.PlexToken == "" && cfg.Plex.Token != "" {
		setting.PlexToken = cfg.Plex.Token
		changed = true
	}
	if setting.JellyfinURL == "" && cfg.Jellyfin.URL != "" {
		setting.JellyfinURL = cfg.Jellyfin.URL
		changed = true
	}
	if setting.JellyfinAPIKey == "" && cfg.Jellyfin.APIKey != "" {
		setting.JellyfinAPIKey = cfg.Jellyfin.APIKey
		changed = true
	}
	if setting.Timezone == "" {
		setting.Timezone = "Local"
		changed = true
	}

	if !changed {
		return nil
	}
	return st.UpdateSetting(ctx, setting)
}

// buildAdapters constructs a ServerAdapter for each backend that has a URL
// configured. Either return value may be nil.
func buildAdapters(cfg *config.Config) (plex, jelly serveradapter.ServerAdapter) {
	if cfg.Plex.URL != "" {
		plex = serveradapter.NewPlexAdapter(serveradapter.Config{
			BaseURL:   cfg.Plex.URL,
			TLSVerify: resolveTLSVerify(cfg.Plex.TLSVerify, cfg.Plex.URL, cfg.Server.Environment),
		}, cfg.Plex.Token)
	}
	if cfg.Jellyfin.URL != "" {
		jelly = serveradapter.NewJellyfinAdapter(serveradapter.Config{
			BaseURL:   cfg.Jellyfin.URL,
			TLSVerify: resolveTLSVerify(cfg.Jellyfin.TLSVerify, cfg.Jellyfin.URL, cfg.Server.Environment),
		}, cfg.Jellyfin.APIKey)
	}
	return plex, jelly
}

// resolveTLSVerify honors an explicit operator override ("true"/"false");
// otherwise it defers to InferTLSVerify's local/private-network heuristic.
func resolveTLSVerify(override, rawURL, env string) bool {
	switch override {
	case "true":
		return true
	case "false":
		return false
	default:
		return serveradapter.InferTLSVerify(rawURL, env)
	}
}

// choosePrimaryAdapter resolves the §9 "server-adapter polymorphism" Open
// Question for deployments that configure both backends at once: the
// ControlLoop drives exactly one media server, Plex taking priority since
// it is NeXroll's original and more fully specified backend (§6.1 vs
// §6.2's narrower plugin-based Jellyfin surface). The webhook receiver and
// management API still talk to whichever adapters are configured,
// independent of this choice.
func choosePrimaryAdapter(plex, jelly serveradapter.ServerAdapter) (serveradapter.ServerAdapter, error) {
	switch {
	case plex != nil:
		return plex, nil
	case jelly != nil:
		return jelly, nil
	default:
		return nil, fmt.Errorf("neither plex.url nor jellyfin.url is configured")
	}
}

// buildHolidayClient wires the HolidayAPI client with a durable Badger-backed
// cache alongside the Store's data directory, so resolved holiday lookups
// survive a restart instead of re-hitting the upstream API (§9 "Scope of
// in-process caches").
func buildHolidayClient(cfg *config.Config) *holidayapi.Client {
	client := holidayapi.New(cfg.HolidayAPI.BaseURL, "", cfg.HolidayAPI.Timeout)

	cachePath := ""
	if cfg.Store.Path != "" && cfg.Store.Path != ":memory:" {
		cachePath = filepath.Join(filepath.Dir(cfg.Store.Path), "holidaycache")
	}
	cacheStore, err := cache.Open(cache.Config{Path: cachePath})
	if err != nil {
		logging.Warn().Err(err).Str("component", "main").Msg("holiday cache unavailable, falling back to in-memory only")
		return client
	}
	return client.WithPersistentCache(cacheStore)
}
