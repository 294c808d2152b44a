package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "fritter-circles/backend/pkg/errors"
)

// ============================================================================
// User Operations
// ============================================================================

// CreateUser registers a new user and attaches a default botscore record.
func (r *Repository) CreateUser(ctx context.Context, username, displayName string) (*User, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}

	exists, err := r.UserExists(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewDuplicateUsername(username)
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	now := time.Now().UTC()

	query := `
		CREATE (u:User {username: $username, display_name: $displayName, created_at: datetime($now)})
		CREATE (u)-[:HAS_BOTSCORE]->(:Botscore {score: $score, threshold: $threshold, updated_at: datetime($now)})
		RETURN u.username as username
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username":    username,
		"displayName": displayName,
		"now":         now.Format(time.RFC3339),
		"score":       DefaultBotscore,
		"threshold":   DefaultThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if _, err := result.Single(ctx); err != nil {
		return nil, fmt.Errorf("failed to verify user creation: %w", err)
	}

	r.logger.Info("User created", zap.String("username", username))

	return &User{Username: username, DisplayName: displayName, CreatedAt: now}, nil
}

// GetUser fetches a user by username
func (r *Repository) GetUser(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {username: $username})
		RETURN u.username as username, u.display_name as display_name, u.created_at as created_at
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, apperrors.NewUserNotFound(username)
	}

	record := result.Record()
	return &User{
		Username:    getStringFromRecord(record, "username"),
		DisplayName: getStringFromRecord(record, "display_name"),
		CreatedAt:   getTimeFromRecord(record, "created_at"),
	}, nil
}

// UserExists reports whether a user is registered
func (r *Repository) UserExists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, apperrors.ErrEmptyUsername
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (u:User {username: $username})
		RETURN u IS NOT NULL as exists
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch record: %w", err)
	}

	return getBoolFromRecord(record, "exists"), nil
}

// DeleteUser removes a user and cascades to everything hanging off them:
// freets, botscore, circles they created, follow edges in both directions,
// and their membership in other users' circles.
func (r *Repository) DeleteUser(ctx context.Context, username string) error {
	if username == "" {
		return apperrors.ErrEmptyUsername
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	// DETACH DELETE on the user node drops follow and membership edges;
	// owned nodes are matched explicitly so they go with it.
	query := `
		MATCH (u:User {username: $username})
		OPTIONAL MATCH (u)-[:POSTED]->(f:Freet)
		OPTIONAL MATCH (u)-[:HAS_BOTSCORE]->(b:Botscore)
		OPTIONAL MATCH (u)-[:CREATED]->(c:Circle)
		DETACH DELETE f, b, c, u
		RETURN count(u) as deleted
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify user deletion: %w", err)
	}
	if getIntFromRecord(record, "deleted") == 0 {
		return apperrors.NewUserNotFound(username)
	}

	r.logger.Info("User deleted", zap.String("username", username))
	return nil
}

// runSingle is a small helper for write queries that return one row
func runSingle(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]interface{}) (*neo4j.Record, error) {
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Single(ctx)
}
