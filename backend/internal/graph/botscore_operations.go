package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "fritter-circles/backend/pkg/errors"
)

// ============================================================================
// Reputation Store Operations
// ============================================================================

// GetBotscore returns the botscore record for a user, or a not-found error
// if the user has none.
func (r *Repository) GetBotscore(ctx context.Context, username string) (*Botscore, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:User {username: $username})-[:HAS_BOTSCORE]->(b:Botscore)
		RETURN b.score as score, b.threshold as threshold
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch botscore: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, apperrors.NewBotscoreNotFound(username)
	}

	record := result.Record()
	return &Botscore{
		Username:  username,
		Score:     getIntFromRecord(record, "score"),
		Threshold: getIntFromRecord(record, "threshold"),
	}, nil
}

// EnsureBotscore creates the default botscore record for a user if missing.
// Idempotent; at most one record ever exists per user.
func (r *Repository) EnsureBotscore(ctx context.Context, username string) error {
	if username == "" {
		return apperrors.ErrEmptyUsername
	}
	if err := r.requireUsers(ctx, username); err != nil {
		return err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {username: $username})
		MERGE (u)-[:HAS_BOTSCORE]->(b:Botscore)
		ON CREATE SET b.score = $score, b.threshold = $threshold, b.updated_at = datetime($now)
		RETURN b.score as score
	`

	if _, err := runSingle(ctx, session, query, map[string]interface{}{
		"username":  username,
		"score":     DefaultBotscore,
		"threshold": DefaultThreshold,
		"now":       time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to ensure botscore: %w", err)
	}

	return nil
}

// SetBotscore sets a user's score. Privileged; callers are responsible for
// authorizing the request before reaching the store.
func (r *Repository) SetBotscore(ctx context.Context, username string, score int) (*Botscore, error) {
	if err := validPercentage("score", score); err != nil {
		return nil, err
	}
	return r.upsertBotscore(ctx, username, "score", score)
}

// SetBotscoreThreshold sets a user's display threshold. Self-service only;
// the HTTP layer derives username from the caller identity.
func (r *Repository) SetBotscoreThreshold(ctx context.Context, username string, threshold int) (*Botscore, error) {
	if err := validPercentage("threshold", threshold); err != nil {
		return nil, err
	}
	return r.upsertBotscore(ctx, username, "threshold", threshold)
}

func (r *Repository) upsertBotscore(ctx context.Context, username, field string, value int) (*Botscore, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	if err := r.requireUsers(ctx, username); err != nil {
		return nil, err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	// field is one of two compile-time constants, never caller input
	query := fmt.Sprintf(`
		MATCH (u:User {username: $username})
		MERGE (u)-[:HAS_BOTSCORE]->(b:Botscore)
		ON CREATE SET b.score = $defaultScore, b.threshold = $defaultThreshold
		SET b.%s = $value, b.updated_at = datetime($now)
		RETURN b.score as score, b.threshold as threshold
	`, field)

	record, err := runSingle(ctx, session, query, map[string]interface{}{
		"username":         username,
		"value":            value,
		"defaultScore":     DefaultBotscore,
		"defaultThreshold": DefaultThreshold,
		"now":              time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update botscore: %w", err)
	}

	r.logger.Info("Botscore updated",
		zap.String("username", username),
		zap.String("field", field),
		zap.Int("value", value),
	)

	return &Botscore{
		Username:  username,
		Score:     getIntFromRecord(record, "score"),
		Threshold: getIntFromRecord(record, "threshold"),
	}, nil
}

func validPercentage(field string, value int) error {
	if value < 0 || value > 100 {
		return apperrors.NewInvalidPercentage(field, value)
	}
	return nil
}
