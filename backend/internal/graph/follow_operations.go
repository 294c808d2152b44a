package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "fritter-circles/backend/pkg/errors"
)

// ============================================================================
// Social Graph Operations
// ============================================================================

// Follow records a directed follower -> followee edge. Unique per pair;
// following twice is a no-op.
func (r *Repository) Follow(ctx context.Context, follower, followee string) error {
	if follower == "" || followee == "" {
		return apperrors.ErrEmptyUsername
	}
	if err := r.requireUsers(ctx, follower, followee); err != nil {
		return err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (a:User {username: $follower})
		MATCH (b:User {username: $followee})
		MERGE (a)-[f:FOLLOWS]->(b)
		ON CREATE SET f.since = datetime($now)
		RETURN count(f) as created
	`

	if _, err := runSingle(ctx, session, query, map[string]interface{}{
		"follower": follower,
		"followee": followee,
		"now":      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}

	r.logger.Info("Follow created",
		zap.String("follower", follower),
		zap.String("followee", followee),
	)
	return nil
}

// Unfollow removes the follower -> followee edge. Removing an edge that
// does not exist is a no-op.
func (r *Repository) Unfollow(ctx context.Context, follower, followee string) error {
	if follower == "" || followee == "" {
		return apperrors.ErrEmptyUsername
	}
	if err := r.requireUsers(ctx, follower, followee); err != nil {
		return err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (:User {username: $follower})-[f:FOLLOWS]->(:User {username: $followee})
		DELETE f
		RETURN count(f) as deleted
	`

	record, err := runSingle(ctx, session, query, map[string]interface{}{
		"follower": follower,
		"followee": followee,
	})
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	r.logger.Info("Follow deleted",
		zap.String("follower", follower),
		zap.String("followee", followee),
		zap.Int("removed", getIntFromRecord(record, "deleted")),
	)
	return nil
}

// FollowersOf returns the usernames following the given user. An unknown
// user yields an empty set, not an error; only an empty username is a
// caller error.
func (r *Repository) FollowersOf(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	return r.collectUsernames(ctx, `
		MATCH (f:User)-[:FOLLOWS]->(:User {username: $username})
		RETURN f.username as username
		ORDER BY username
	`, username)
}

// FollowingOf returns the usernames the given user follows
func (r *Repository) FollowingOf(ctx context.Context, username string) ([]string, error) {
	if username == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	return r.collectUsernames(ctx, `
		MATCH (:User {username: $username})-[:FOLLOWS]->(f:User)
		RETURN f.username as username
		ORDER BY username
	`, username)
}

// FollowExists reports whether follower currently follows followee
func (r *Repository) FollowExists(ctx context.Context, follower, followee string) (bool, error) {
	if follower == "" || followee == "" {
		return false, apperrors.ErrEmptyUsername
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (a:User {username: $follower})-[f:FOLLOWS]->(b:User {username: $followee})
		RETURN f IS NOT NULL as follows
	`

	record, err := runSingle(ctx, session, query, map[string]interface{}{
		"follower": follower,
		"followee": followee,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}

	return getBoolFromRecord(record, "follows"), nil
}

// requireUsers verifies every username exists, returning a not-found error
// naming the first missing one.
func (r *Repository) requireUsers(ctx context.Context, usernames ...string) error {
	for _, username := range usernames {
		exists, err := r.UserExists(ctx, username)
		if err != nil {
			return err
		}
		if !exists {
			return apperrors.NewUserNotFound(username)
		}
	}
	return nil
}

func (r *Repository) collectUsernames(ctx context.Context, query, username string) ([]string, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"username": username,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch follows: %w", err)
	}

	usernames := []string{}
	for result.Next(ctx) {
		if name := getStringFromRecord(result.Record(), "username"); name != "" {
			usernames = append(usernames, name)
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate follows: %w", err)
	}

	return usernames, nil
}
