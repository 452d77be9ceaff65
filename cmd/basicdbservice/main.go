// Package main implements the BasicDB server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/basicdb/basicdb-go/internal/api"
	"github.com/basicdb/basicdb-go/internal/common"
	"github.com/basicdb/basicdb-go/internal/storage"
	"github.com/basicdb/basicdb-go/internal/storage/filesystem"
	"github.com/basicdb/basicdb-go/internal/storage/memory"
	"github.com/basicdb/basicdb-go/internal/storage/mongokv"
	"github.com/basicdb/basicdb-go/internal/storage/postgres"
	"github.com/basicdb/basicdb-go/internal/storage/s3kv"
)

// newDriver constructs the storage backend selected by backend.driver.
// The returned shutdown function releases the backend's connections and
// is a no-op for backends without any.
func newDriver(ctx context.Context, cfg *common.Config) (storage.Driver, func(), error) {
	noop := func() {}

	switch cfg.Backend.Driver {
	case "memory":
		log.Println("🗄️  Using in-memory backend (data is not persisted)")
		return memory.New(), noop, nil

	case "filesystem":
		log.Printf("🗄️  Using filesystem backend at %s", cfg.Filesystem.BaseDir)
		backend, err := filesystem.New(cfg.Filesystem.BaseDir)
		if err != nil {
			return nil, nil, err
		}
		return backend, noop, nil

	case "postgres":
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
			cfg.Postgres.User,
			cfg.Postgres.Password,
			cfg.Postgres.Host,
			cfg.Postgres.Port,
			cfg.Postgres.DBName,
		)
		log.Printf("🗄️  Connecting to Postgres with DSN: postgres://%s:****@%s:%d/%s?sslmode=disable",
			cfg.Postgres.User, cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName)
		backend, err := postgres.New(
			dsn,
			cfg.Postgres.MaxOpenConnections,
			cfg.Postgres.MaxIdleConnections,
			cfg.Postgres.ConnMaxLifetimeMinutes,
		)
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ Postgres connection established")
		return backend, func() {
			if err := backend.Close(); err != nil {
				log.Printf("Postgres close error: %v", err)
			}
		}, nil

	case "mongo":
		log.Printf("🗄️  Connecting to MongoDB database %q", cfg.Mongo.Database)
		backend, err := mongokv.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ MongoDB connection established")
		return backend, func() {
			if err := backend.Close(context.Background()); err != nil {
				log.Printf("MongoDB disconnect error: %v", err)
			}
		}, nil

	case "s3":
		log.Printf("🗄️  Connecting to S3 (master bucket %q)", cfg.S3.Bucket)
		backend, err := s3kv.New(ctx, s3kv.Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			MasterBucket:    cfg.S3.Bucket,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Println("✅ S3 connection established")
		return backend, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}

// newRouter assembles the full HTTP surface: CORS, the public health
// endpoint, and the query API mounted under the context path.
func newRouter(cfg *common.Config, store *storage.Store) *chi.Mux {
	r := chi.NewRouter()

	// --- CORS ---
	common.AddCors(r, cfg)

	// --- Health Endpoint (public) ---
	common.AddHealthEndpoint(r, cfg)

	// === Query API ===
	apiRouter := chi.NewRouter()
	api.Routes(apiRouter, store, cfg.Auth.DefaultOwner)

	base := common.NormalizeBasePath(cfg.Server.ContextPath)
	r.Mount(base, apiRouter)

	return r
}

func runServer(ctx context.Context, configPath string) error {
	common.PrintSplash()
	log.Default().Println("Loading BasicDB Service...")
	log.Default().Println("Config Path:", configPath)

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// === Storage Backend ===
	driver, shutdown, err := newDriver(ctx, cfg)
	if err != nil {
		log.Printf("❌ Backend init failed: %v", err)
		return err
	}
	defer shutdown()

	r := newRouter(cfg, storage.NewStore(driver))

	// === Start Server ===
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("▶️ BasicDB listening on %s (contextPath=%q, backend=%s)\n",
		addr, cfg.Server.ContextPath, cfg.Backend.Driver)

	go func() {
		if err := http.ListenAndServe(addr, r); err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")
	return nil
}

func main() {
	ctx := context.Background()
	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
