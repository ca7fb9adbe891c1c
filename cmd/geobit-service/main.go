package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/geobit/geobit/internal/api"
	"github.com/geobit/geobit/internal/config"
	"github.com/geobit/geobit/internal/llm"
	"github.com/geobit/geobit/internal/search"
	"github.com/geobit/geobit/internal/service"
	"github.com/geobit/geobit/internal/store"
)

func main() {
	cfg := config.FromEnv()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	db, err := sql.Open("postgres", pgURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	// simple ping + wait (db might be starting in docker)
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Printf("waiting for db: attempt %d, err: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("could not connect to db: %v", err)
	}

	if err := store.RunMigrations(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warning: redis ping failed: %v", err)
	}

	repo := store.NewPgStore(db)
	cache := search.NewCache(rdb)

	client := llm.NewClient(llm.DefaultBaseURL, cfg.OpenRouterKey, nil)
	searcher := search.NewSearcher(client, cfg.SearchModel, cfg.SearchFallbacks)

	svc := service.NewService(repo, cache, searcher, client, cfg.OpenRouterKey)
	handler := api.NewHandler(svc)

	router := gin.Default()
	api.RegisterRoutes(router, handler)

	log.Printf("listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
