// Command seed stores the demo riders and drivers and prints a token for each.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	repo "github.com/Temutjin2k/ride-dispatch/internal/adapter/postgres"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/seed"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	"github.com/Temutjin2k/ride-dispatch/pkg/postgres"
)

var (
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
	tokensOnly = flag.Bool("tokens-only", false, "Skip the database and only print tokens")
)

func main() {
	flag.Parse()

	// short timeout for seed operations
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	profiles := seed.DefaultProfiles()
	if !*tokensOnly {
		profiles, err = store(ctx, cfg)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("seed: inserted/ensured %d profiles", len(profiles))
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, logger.InitLogger("seed", logger.LevelWarn))
	for _, p := range profiles {
		token, exp, err := tokens.Generate(ctx, models.Identity{ID: p.ID, Role: p.Role})
		if err != nil {
			log.Fatalf("seed: token for %s: %v", p.Email, err)
		}
		fmt.Printf("%-7s %-16s %s\n  expires %s\n  %s\n", p.Role, p.Email, p.ID, exp.Format(time.RFC3339), token)
	}
}

func store(ctx context.Context, cfg *config.Config) ([]*models.Profile, error) {
	db, err := postgres.New(ctx, cfg.Database, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := repo.Migrate(ctx, db.Pool); err != nil {
		return nil, err
	}

	return seed.Apply(ctx, repo.NewProfileRepo(db.Pool))
}
