package main

import (
	"context"
	"database/sql"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cardex/internal/coordinator"
	"cardex/internal/credential"
	"cardex/internal/didresolver"
	"cardex/internal/groups"
	"cardex/internal/keystore"
	"cardex/internal/platform/config"
	"cardex/internal/platform/httpserver"
	"cardex/internal/platform/logger"
	"cardex/internal/platform/metrics"
	platformredis "cardex/internal/platform/redis"
	"cardex/internal/presentation"
	httptransport "cardex/internal/transport/http"
	"cardex/internal/zk"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	keys := keystore.New(cfg.KeyAlias, keystore.NewMemoryBackend(),
		keystore.WithLogger(log), keystore.WithMetrics(m))
	resolver := didresolver.New(keys)

	library, cleanup, err := buildLibrary(cfg, log)
	if err != nil {
		log.Fatalf("credential library setup failed: %v", err)
	}
	defer cleanup()

	engine := credential.NewEngine(keys, resolver, library,
		credential.WithLogger(log), credential.WithMetrics(m))
	protocol := presentation.New(cfg.URIScheme, engine, presentation.WithLogger(log))
	coord := coordinator.New(resolver, engine, protocol, zk.NewLocalProvider(), groups.NewMemoryRoster(),
		coordinator.WithLogger(log), coordinator.WithMetrics(m), coordinator.WithScheme(cfg.URIScheme))

	coord.RefreshIdentity(context.Background())

	handler := httptransport.New(log, resolver, engine, library, protocol, coord, cfg.DIDWebDomain)
	srv := httpserver.New(cfg.Addr, handler.Router())

	log.Printf("starting cardex on %s (did:web domain %s)", cfg.Addr, cfg.DIDWebDomain)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

// buildLibrary selects the credential store: Postgres when a DSN is set,
// Redis when a URL is set, in-memory otherwise.
func buildLibrary(cfg config.Server, log *stdlog.Logger) (credential.Library, func(), error) {
	noop := func() {}

	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return nil, noop, err
		}
		library := credential.NewPostgresLibrary(db)
		if err := library.Migrate(context.Background()); err != nil {
			db.Close()
			return nil, noop, err
		}
		log.Printf("credential library: postgres")
		return library, func() { db.Close() }, nil
	}

	if cfg.Redis.URL != "" {
		client, err := platformredis.New(cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		log.Printf("credential library: redis")
		return credential.NewRedisLibrary(client.Client), func() { client.Close() }, nil
	}

	log.Printf("credential library: in-memory")
	return credential.NewInMemoryLibrary(), noop, nil
}
