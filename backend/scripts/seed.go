package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"fritter-circles/backend/internal/graph"
	"fritter-circles/backend/pkg/config"
	apperrors "fritter-circles/backend/pkg/errors"
	"fritter-circles/backend/pkg/logger"
)

// Seeds a demo social graph: four users, a follow mesh, a couple of
// circles, and a handful of freets (some circle-restricted).
func main() {
	scoreBots := flag.Bool("score-bots", true, "Assign non-zero botscores to the demo bot account")
	flag.Parse()

	if err := logger.Init("development"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	repo := graph.NewRepository(driver)

	users := map[string]string{
		"alice":   "Alice",
		"bob":     "Bob",
		"carol":   "Carol",
		"freebot": "Definitely Not A Bot",
	}
	for username, display := range users {
		if _, err := repo.CreateUser(ctx, username, display); err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeConflict) {
				log.Info("User already exists, skipping", zap.String("username", username))
				continue
			}
			log.Fatal("Failed to create user", zap.String("username", username), zap.Error(err))
		}
	}

	follows := [][2]string{
		{"bob", "alice"},
		{"carol", "alice"},
		{"alice", "bob"},
		{"carol", "bob"},
		{"freebot", "alice"},
		{"freebot", "bob"},
	}
	for _, f := range follows {
		if err := repo.Follow(ctx, f[0], f[1]); err != nil {
			log.Fatal("Failed to create follow", zap.String("follower", f[0]), zap.String("followee", f[1]), zap.Error(err))
		}
	}

	circles := []struct {
		creator string
		name    string
		members []string
	}{
		{"alice", "close", []string{"carol"}},
		{"alice", "work", []string{"bob", "carol"}},
		{"bob", "gamers", []string{"carol"}},
	}
	for _, c := range circles {
		if _, err := repo.CreateCircle(ctx, c.creator, c.name, c.members); err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeConflict) {
				log.Info("Circle already exists, skipping", zap.String("name", c.name))
				continue
			}
			log.Fatal("Failed to create circle", zap.String("name", c.name), zap.Error(err))
		}
	}

	freets := []struct {
		author string
		body   string
		circle string
	}{
		{"alice", "hello world, first freet!", ""},
		{"alice", "only for the inner circle", "close"},
		{"alice", "meeting notes are up", "work"},
		{"bob", "anyone up for a round tonight?", "gamers"},
		{"bob", "public service announcement: freets are not tweets", graph.SentinelCircle},
		{"carol", "just setting up my freetr", ""},
		{"freebot", "BUY FOLLOWERS NOW visit https://example.com/deal", ""},
	}
	for _, f := range freets {
		if _, err := repo.CreateFreet(ctx, f.author, f.body, f.circle); err != nil {
			log.Fatal("Failed to create freet", zap.String("author", f.author), zap.Error(err))
		}
	}

	if *scoreBots {
		if _, err := repo.SetBotscore(ctx, "freebot", 93); err != nil {
			log.Fatal("Failed to set botscore", zap.Error(err))
		}
		if _, err := repo.SetBotscoreThreshold(ctx, "freebot", 50); err != nil {
			log.Fatal("Failed to set threshold", zap.Error(err))
		}
	}

	log.Info("Seed complete",
		zap.Int("users", len(users)),
		zap.Int("follows", len(follows)),
		zap.Int("circles", len(circles)),
		zap.Int("freets", len(freets)),
	)
}
