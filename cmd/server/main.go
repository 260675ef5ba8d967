package main

import (
	"context"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kaeptnchris246/eut-v1-sub002/internal/ledger"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/swap"
	"github.com/kaeptnchris246/eut-v1-sub002/internal/token"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/authn"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/config"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/db"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/logging"
	"github.com/kaeptnchris246/eut-v1-sub002/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer pool.Close()

	if err := migrate.Run(ctx, pool, "migrations"); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	tokens, err := token.NewProvider(func() (*token.Registry, error) {
		return token.Build(os.Getenv)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("token registry build failed")
	}

	srv := &server{
		log:    log,
		store:  ledger.New(pool),
		tokens: tokens,
		engine: swap.New(func() *token.Registry { return tokens.Current() }, swap.Config{
			PoolAddress: cfg.PoolAddress,
			FeeBps:      cfg.FeeBps,
		}),
	}

	r := chi.NewRouter()
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/tokens", srv.listTokens)

	r.Group(func(api chi.Router) {
		api.Use(authn.Middleware(cfg.JWTSecret))

		api.Get("/funds", srv.listFunds)
		api.Get("/funds/{fund_id}", srv.getFund)
		api.Post("/funds", srv.createFund)
		api.Post("/funds/{fund_id}/commitments", srv.reserveCommitment)

		api.Get("/commitments", srv.listCommitments)
		api.Post("/commitments/{commitment_id}/confirm", srv.confirmCommitment)
		api.Post("/commitments/{commitment_id}/cancel", srv.cancelCommitment)

		api.Get("/transactions", srv.listTransactions)

		api.Post("/tokens/refresh", srv.refreshTokens)
		api.Post("/swap/quote", srv.swapQuote)
	})

	log.Info().Str("port", cfg.Port).Msg("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
