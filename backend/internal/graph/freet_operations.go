package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "fritter-circles/backend/pkg/errors"
)

// ============================================================================
// Freet Operations
// ============================================================================

// CreateFreet stores a new freet. The circle tag is fixed at creation and
// must name one of the author's circles (or be empty / the sentinel); the
// tag is a plain string afterwards, resolved at read time.
func (r *Repository) CreateFreet(ctx context.Context, author, body, circle string) (*Freet, error) {
	if author == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	if body == "" {
		return nil, apperrors.ErrEmptyFreetBody
	}
	if err := r.requireUsers(ctx, author); err != nil {
		return nil, err
	}

	if circle != "" && circle != SentinelCircle {
		if _, err := r.ResolveCircle(ctx, author, circle); err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				return nil, apperrors.NewUnknownCircleTag(author, circle)
			}
			return nil, err
		}
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	freet := &Freet{
		ID:        uuid.New().String(),
		Author:    author,
		Body:      body,
		Circle:    circle,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		MATCH (u:User {username: $author})
		CREATE (u)-[:POSTED]->(f:Freet {
			id: $id,
			body: $body,
			circle: $circle,
			created_at: datetime($now)
		})
		RETURN f.id as id
	`

	if _, err := runSingle(ctx, session, query, map[string]interface{}{
		"author": author,
		"id":     freet.ID,
		"body":   body,
		"circle": circle,
		"now":    freet.CreatedAt.Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("failed to create freet: %w", err)
	}

	r.logger.Info("Freet created",
		zap.String("id", freet.ID),
		zap.String("author", author),
		zap.String("circle", circle),
	)

	return freet, nil
}

// GetFreet fetches one freet by id
func (r *Repository) GetFreet(ctx context.Context, id string) (*Freet, error) {
	if id == "" {
		return nil, apperrors.NewFreetNotFound(id)
	}

	session := r.readSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (u:User)-[:POSTED]->(f:Freet {id: $id})
		RETURN f.id as id, u.username as author, f.body as body,
		       f.circle as circle, f.created_at as created_at
	`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id": id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch freet: %w", err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, apperrors.NewFreetNotFound(id)
	}

	return freetFromRecord(result.Record()), nil
}

// ListFreets returns all freets, newest first
func (r *Repository) ListFreets(ctx context.Context) ([]Freet, error) {
	return r.collectFreets(ctx, `
		MATCH (u:User)-[:POSTED]->(f:Freet)
		RETURN f.id as id, u.username as author, f.body as body,
		       f.circle as circle, f.created_at as created_at
		ORDER BY f.created_at DESC
	`, map[string]interface{}{})
}

// ListFreetsByAuthor returns one author's freets, newest first
func (r *Repository) ListFreetsByAuthor(ctx context.Context, author string) ([]Freet, error) {
	if author == "" {
		return nil, apperrors.ErrEmptyUsername
	}
	return r.collectFreets(ctx, `
		MATCH (u:User {username: $author})-[:POSTED]->(f:Freet)
		RETURN f.id as id, u.username as author, f.body as body,
		       f.circle as circle, f.created_at as created_at
		ORDER BY f.created_at DESC
	`, map[string]interface{}{"author": author})
}

// DeleteFreet removes a freet. Only its author may delete it.
func (r *Repository) DeleteFreet(ctx context.Context, actor, id string) error {
	if actor == "" {
		return apperrors.ErrEmptyUsername
	}

	freet, err := r.GetFreet(ctx, id)
	if err != nil {
		return err
	}
	if freet.Author != actor {
		return apperrors.NewNotFreetAuthor(actor, id)
	}

	session := r.writeSession(ctx)
	defer session.Close(ctx)

	query := `
		MATCH (f:Freet {id: $id})
		DETACH DELETE f
	`

	if _, err := session.Run(ctx, query, map[string]interface{}{
		"id": id,
	}); err != nil {
		return fmt.Errorf("failed to delete freet: %w", err)
	}

	r.logger.Info("Freet deleted",
		zap.String("id", id),
		zap.String("author", actor),
	)
	return nil
}

func (r *Repository) collectFreets(ctx context.Context, query string, params map[string]interface{}) ([]Freet, error) {
	session := r.readSession(ctx)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch freets: %w", err)
	}

	freets := []Freet{}
	for result.Next(ctx) {
		freets = append(freets, *freetFromRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate freets: %w", err)
	}

	return freets, nil
}

func freetFromRecord(record *neo4j.Record) *Freet {
	return &Freet{
		ID:        getStringFromRecord(record, "id"),
		Author:    getStringFromRecord(record, "author"),
		Body:      getStringFromRecord(record, "body"),
		Circle:    getStringFromRecord(record, "circle"),
		CreatedAt: getTimeFromRecord(record, "created_at"),
	}
}
