package graph

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "fritter-circles/backend/pkg/errors"
)

// ============================================================================
// Circle Registry Operations
// ============================================================================

// CirclesOf returns all circles created by the given user, members included.
func (r *Repository) CirclesOf(ctx context.Context, creator string) ([]Circle, error) {
	if creator == "" {
		return nil, apperrors.ErrEmptyUsername
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:User {username: $creator})-[:CREATED]->(c:Circle)
		OPTIONAL MATCH (m:User)-[:IN_CIRCLE]->(c)
		RETURN c.name as name, collect(m.username) as members
		ORDER BY name
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"creator": creator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch circles: %w", err)
	}

	circles := []Circle{}
	for result.Next(ctx) {
		record := result.Record()
		circles = append(circles, Circle{
			Creator: creator,
			Name:    getStringFromRecord(record, "name"),
			Members: getStringSliceFromRecord(record, "members"),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate circles: %w", err)
	}

	return circles, nil
}

// ResolveCircle looks up one circle by creator and name. The sentinel name
// never resolves to a stored circle.
func (r *Repository) ResolveCircle(ctx context.Context, creator, name string) (*Circle, error) {
	if creator == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	if name == "" || name == SentinelCircle {
		return nil, apperrors.NewCircleNotFound(creator, name)
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:User {username: $creator})-[:CREATED]->(c:Circle {name: $name})
		OPTIONAL MATCH (m:User)-[:IN_CIRCLE]->(c)
		RETURN c.name as name, collect(m.username) as members
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"creator": creator,
		"name":    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch circle: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, apperrors.NewCircleNotFound(creator, name)
	}

	record := result.Record()
	return &Circle{
		Creator: creator,
		Name:    getStringFromRecord(record, "name"),
		Members: getStringSliceFromRecord(record, "members"),
	}, nil
}

// CreateCircle creates a named circle for the creator. Members must be
// current followers of the creator; the creator themselves is silently
// dropped from the member list. The membership snapshot is fixed until the
// circle is next edited, even if members later unfollow.
func (r *Repository) CreateCircle(ctx context.Context, creator, name string, members []string) (*Circle, error) {
	if creator == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	if name == "" || name == SentinelCircle {
		return nil, apperrors.ErrEmptyCircleName
	}
	if err := r.requireUsers(ctx, creator); err != nil {
		return nil, err
	}

	cleaned, err := r.validateMembers(ctx, creator, members)
	if err != nil {
		return nil, err
	}

	if _, err := r.ResolveCircle(ctx, creator, name); err == nil {
		return nil, apperrors.NewDuplicateCircleName(creator, name)
	} else if !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return nil, err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User {username: $creator})
		CREATE (u)-[:CREATED]->(c:Circle {name: $name, created_at: datetime($now)})
		RETURN c.name as name
	`

	if _, err := runSingle(ctx, session, query, map[string]interface{}{
		"creator": creator,
		"name":    name,
		"now":     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("failed to create circle: %w", err)
	}

	if err := r.setCircleMembers(ctx, creator, name, cleaned); err != nil {
		return nil, err
	}

	r.logger.Info("Circle created",
		zap.String("creator", creator),
		zap.String("name", name),
		zap.Int("members", len(cleaned)),
	)

	return &Circle{Creator: creator, Name: name, Members: cleaned}, nil
}

// RenameCircle renames a circle. Only the creator may mutate their circles.
func (r *Repository) RenameCircle(ctx context.Context, actor, creator, name, newName string) error {
	if actor == "" || creator == "" {
		return apperrors.ErrEmptyUsername
	}
	if actor != creator {
		return apperrors.NewNotCircleCreator(actor, name)
	}
	if newName == "" || newName == SentinelCircle {
		return apperrors.ErrEmptyCircleName
	}

	if _, err := r.ResolveCircle(ctx, creator, name); err != nil {
		return err
	}
	if _, err := r.ResolveCircle(ctx, creator, newName); err == nil {
		return apperrors.NewDuplicateCircleName(creator, newName)
	} else if !apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
		return err
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (:User {username: $creator})-[:CREATED]->(c:Circle {name: $name})
		SET c.name = $newName
		RETURN c.name as name
	`

	if _, err := runSingle(ctx, session, query, map[string]interface{}{
		"creator": creator,
		"name":    name,
		"newName": newName,
	}); err != nil {
		return fmt.Errorf("failed to rename circle: %w", err)
	}

	r.logger.Info("Circle renamed",
		zap.String("creator", creator),
		zap.String("from", name),
		zap.String("to", newName),
	)
	return nil
}

// ReplaceCircleMembers replaces a circle's member set. Only the creator may
// mutate their circles; members must be current followers at write time.
func (r *Repository) ReplaceCircleMembers(ctx context.Context, actor, creator, name string, members []string) error {
	if actor == "" || creator == "" {
		return apperrors.ErrEmptyUsername
	}
	if actor != creator {
		return apperrors.NewNotCircleCreator(actor, name)
	}

	if _, err := r.ResolveCircle(ctx, creator, name); err != nil {
		return err
	}

	cleaned, err := r.validateMembers(ctx, creator, members)
	if err != nil {
		return err
	}

	if err := r.setCircleMembers(ctx, creator, name, cleaned); err != nil {
		return err
	}

	r.logger.Info("Circle members replaced",
		zap.String("creator", creator),
		zap.String("name", name),
		zap.Int("members", len(cleaned)),
	)
	return nil
}

// DeleteCircle deletes a circle. Only the creator may delete their circles.
// Freets tagged with the deleted circle keep their tag; it simply stops
// resolving.
func (r *Repository) DeleteCircle(ctx context.Context, actor, creator, name string) error {
	if actor == "" || creator == "" {
		return apperrors.ErrEmptyUsername
	}
	if actor != creator {
		return apperrors.NewNotCircleCreator(actor, name)
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		OPTIONAL MATCH (:User {username: $creator})-[:CREATED]->(c:Circle {name: $name})
		DETACH DELETE c
		RETURN count(c) as deleted
	`

	record, err := runSingle(ctx, session, query, map[string]interface{}{
		"creator": creator,
		"name":    name,
	})
	if err != nil {
		return fmt.Errorf("failed to delete circle: %w", err)
	}
	if getIntFromRecord(record, "deleted") == 0 {
		return apperrors.NewCircleNotFound(creator, name)
	}

	r.logger.Info("Circle deleted",
		zap.String("creator", creator),
		zap.String("name", name),
	)
	return nil
}

// validateMembers dedupes the requested member list, drops the creator and
// empty names, and checks every remaining member currently follows the
// creator.
func (r *Repository) validateMembers(ctx context.Context, creator string, members []string) ([]string, error) {
	followers, err := r.FollowersOf(ctx, creator)
	if err != nil {
		return nil, err
	}
	followerSet := make(map[string]bool, len(followers))
	for _, f := range followers {
		followerSet[f] = true
	}

	seen := make(map[string]bool, len(members))
	cleaned := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" || m == creator || seen[m] {
			continue
		}
		if !followerSet[m] {
			return nil, apperrors.NewMemberNotFollower(creator, m)
		}
		seen[m] = true
		cleaned = append(cleaned, m)
	}
	return cleaned, nil
}

// setCircleMembers rewrites the membership edges for a circle
func (r *Repository) setCircleMembers(ctx context.Context, creator, name string, members []string) error {
	session := r.writeSession(ctx)
	defer session.Close(ctx)

	clear := `
		MATCH (:User {username: $creator})-[:CREATED]->(c:Circle {name: $name})
		OPTIONAL MATCH (:User)-[in:IN_CIRCLE]->(c)
		DELETE in
	`
	if _, err := session.Run(ctx, clear, map[string]interface{}{
		"creator": creator,
		"name":    name,
	}); err != nil {
		return fmt.Errorf("failed to clear circle members: %w", err)
	}

	if len(members) == 0 {
		return nil
	}

	add := `
		MATCH (:User {username: $creator})-[:CREATED]->(c:Circle {name: $name})
		UNWIND $members as member
		MATCH (m:User {username: member})
		MERGE (m)-[:IN_CIRCLE]->(c)
	`
	if _, err := session.Run(ctx, add, map[string]interface{}{
		"creator": creator,
		"name":    name,
		"members": members,
	}); err != nil {
		return fmt.Errorf("failed to add circle members: %w", err)
	}

	return nil
}
