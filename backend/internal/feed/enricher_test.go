package feed

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"fritter-circles/backend/internal/graph"
	apperrors "fritter-circles/backend/pkg/errors"
)

// Counting fakes for the two collaborators

type fakeReputation struct {
	mu     sync.Mutex
	calls  map[string]int
	scores map[string]*graph.Botscore
	fail   map[string]error
}

func newFakeReputation() *fakeReputation {
	return &fakeReputation{
		calls:  make(map[string]int),
		scores: make(map[string]*graph.Botscore),
		fail:   make(map[string]error),
	}
}

func (f *fakeReputation) GetBotscore(ctx context.Context, username string) (*graph.Botscore, error) {
	f.mu.Lock()
	f.calls[username]++
	f.mu.Unlock()

	if err := f.fail[username]; err != nil {
		return nil, err
	}
	if score, ok := f.scores[username]; ok {
		return score, nil
	}
	return nil, apperrors.NewBotscoreNotFound(username)
}

func (f *fakeReputation) callCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[username]
}

type fakeCircles struct {
	mu      sync.Mutex
	calls   map[string]int
	circles map[string][]graph.Circle
	fail    map[string]error
}

func newFakeCircles() *fakeCircles {
	return &fakeCircles{
		calls:   make(map[string]int),
		circles: make(map[string][]graph.Circle),
		fail:    make(map[string]error),
	}
}

func (f *fakeCircles) CirclesOf(ctx context.Context, creator string) ([]graph.Circle, error) {
	f.mu.Lock()
	f.calls[creator]++
	f.mu.Unlock()

	if err := f.fail[creator]; err != nil {
		return nil, err
	}
	return f.circles[creator], nil
}

func (f *fakeCircles) callCount(creator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[creator]
}

func freet(id, author, circle string) graph.Freet {
	return graph.Freet{ID: id, Author: author, Body: "body of " + id, Circle: circle}
}

func TestEnrich_OrderAndCardinality(t *testing.T) {
	reputation := newFakeReputation()
	circles := newFakeCircles()
	enricher := NewEnricher(reputation, circles, 4)

	var freets []graph.Freet
	authors := []string{"alice", "bob", "carol"}
	for i := 0; i < 30; i++ {
		freets = append(freets, freet(fmt.Sprintf("f%02d", i), authors[i%len(authors)], ""))
	}

	enriched, err := enricher.Enrich(context.Background(), freets)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if len(enriched) != len(freets) {
		t.Fatalf("Expected %d outputs, got %d", len(freets), len(enriched))
	}
	for i := range freets {
		if enriched[i].ID != freets[i].ID {
			t.Errorf("Output %d: expected id %s, got %s", i, freets[i].ID, enriched[i].ID)
		}
	}
}

func TestEnrich_LookupsIssuedOncePerAuthor(t *testing.T) {
	reputation := newFakeReputation()
	circles := newFakeCircles()
	enricher := NewEnricher(reputation, circles, 4)

	freets := []graph.Freet{
		freet("f1", "alice", ""),
		freet("f2", "alice", ""),
		freet("f3", "alice", ""),
		freet("f4", "bob", ""),
		freet("f5", "alice", ""),
	}

	if _, err := enricher.Enrich(context.Background(), freets); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	for _, author := range []string{"alice", "bob"} {
		if got := reputation.callCount(author); got != 1 {
			t.Errorf("Expected 1 reputation lookup for %s, got %d", author, got)
		}
		if got := circles.callCount(author); got != 1 {
			t.Errorf("Expected 1 circle lookup for %s, got %d", author, got)
		}
	}
}

func TestEnrich_MissingBotscoreDegradesToAbsent(t *testing.T) {
	reputation := newFakeReputation()
	circles := newFakeCircles()
	enricher := NewEnricher(reputation, circles, 4)

	enriched, err := enricher.Enrich(context.Background(), []graph.Freet{freet("f1", "ghost", "")})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if enriched[0].Botscore != nil {
		t.Errorf("Expected absent botscore, got %+v", enriched[0].Botscore)
	}
	if enriched[0].Err != nil {
		t.Errorf("Missing botscore must not be an error, got %v", enriched[0].Err)
	}
}

// The worked example: alice has circle "close" = {carol}; bob has no
// circles and no reputation record.
func TestEnrich_CircleResolution(t *testing.T) {
	reputation := newFakeReputation()
	reputation.scores["alice"] = &graph.Botscore{Username: "alice", Score: 10, Threshold: 100}

	circles := newFakeCircles()
	circles.circles["alice"] = []graph.Circle{
		{Creator: "alice", Name: "close", Members: []string{"carol"}},
	}

	enricher := NewEnricher(reputation, circles, 4)

	freets := []graph.Freet{
		freet("1", "alice", "close"),
		freet("2", "alice", ""),
		freet("3", "bob", "close"),
	}

	enriched, err := enricher.Enrich(context.Background(), freets)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	// Post 1: tag resolves to alice's circle
	if enriched[0].Circle.Name != "close" {
		t.Errorf("Post 1: expected circle name close, got %q", enriched[0].Circle.Name)
	}
	if !reflect.DeepEqual(enriched[0].Circle.Members, []string{"carol"}) {
		t.Errorf("Post 1: expected members [carol], got %v", enriched[0].Circle.Members)
	}

	// Post 2: untagged
	if enriched[1].Circle.Name != "" || enriched[1].Circle.Members != nil {
		t.Errorf("Post 2: expected absent circle, got %+v", enriched[1].Circle)
	}

	// Post 3: bob has no circle named close; tag kept, members absent
	if enriched[2].Circle.Name != "close" {
		t.Errorf("Post 3: expected tag close to be kept, got %q", enriched[2].Circle.Name)
	}
	if enriched[2].Circle.Members != nil {
		t.Errorf("Post 3: expected absent members, got %v", enriched[2].Circle.Members)
	}
	if enriched[2].Botscore != nil {
		t.Errorf("Post 3: expected absent botscore, got %+v", enriched[2].Botscore)
	}

	// Two authors, not three posts
	if reputation.callCount("alice") != 1 || reputation.callCount("bob") != 1 {
		t.Errorf("Expected one reputation lookup per author, got alice=%d bob=%d",
			reputation.callCount("alice"), reputation.callCount("bob"))
	}
	if circles.callCount("alice") != 1 || circles.callCount("bob") != 1 {
		t.Errorf("Expected one circle lookup per author, got alice=%d bob=%d",
			circles.callCount("alice"), circles.callCount("bob"))
	}
}

func TestEnrich_SentinelNeverResolves(t *testing.T) {
	reputation := newFakeReputation()
	circles := newFakeCircles()
	// Even a registered circle named like the sentinel must not resolve
	circles.circles["alice"] = []graph.Circle{
		{Creator: "alice", Name: graph.SentinelCircle, Members: []string{"bob"}},
	}
	enricher := NewEnricher(reputation, circles, 4)

	enriched, err := enricher.Enrich(context.Background(), []graph.Freet{
		freet("f1", "alice", graph.SentinelCircle),
	})
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if enriched[0].Circle.Members != nil {
		t.Errorf("Sentinel tag must not resolve, got members %v", enriched[0].Circle.Members)
	}
	if enriched[0].Circle.Name != graph.SentinelCircle {
		t.Errorf("Expected sentinel name kept, got %q", enriched[0].Circle.Name)
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	reputation := newFakeReputation()
	reputation.scores["alice"] = &graph.Botscore{Username: "alice", Score: 42, Threshold: 80}
	circles := newFakeCircles()
	circles.circles["alice"] = []graph.Circle{
		{Creator: "alice", Name: "close", Members: []string{"carol", "bob"}},
	}
	enricher := NewEnricher(reputation, circles, 4)

	freets := []graph.Freet{
		freet("f1", "alice", "close"),
		freet("f2", "bob", ""),
		freet("f3", "alice", "nope"),
	}

	first, err := enricher.Enrich(context.Background(), freets)
	if err != nil {
		t.Fatalf("First Enrich failed: %v", err)
	}
	second, err := enricher.Enrich(context.Background(), freets)
	if err != nil {
		t.Fatalf("Second Enrich failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output across calls:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestEnrich_CollaboratorFailureTagsOnlyThatAuthor(t *testing.T) {
	reputation := newFakeReputation()
	reputation.fail["bob"] = errors.New("connection reset")
	reputation.scores["alice"] = &graph.Botscore{Username: "alice", Score: 5, Threshold: 100}
	circles := newFakeCircles()
	enricher := NewEnricher(reputation, circles, 4)

	freets := []graph.Freet{
		freet("f1", "alice", ""),
		freet("f2", "bob", ""),
		freet("f3", "alice", ""),
	}

	enriched, err := enricher.Enrich(context.Background(), freets)
	if err != nil {
		t.Fatalf("Batch must not fail for one bad author: %v", err)
	}
	if len(enriched) != 3 {
		t.Fatalf("Expected 3 outputs, got %d", len(enriched))
	}

	if enriched[0].Err != nil || enriched[2].Err != nil {
		t.Errorf("Healthy author's posts must not carry errors: %v, %v", enriched[0].Err, enriched[2].Err)
	}
	if enriched[0].Botscore == nil || enriched[2].Botscore == nil {
		t.Error("Healthy author's posts must still be enriched")
	}
	if enriched[1].Err == nil {
		t.Error("Failed author's post must carry the per-post error")
	}
	if enriched[1].Botscore != nil {
		t.Errorf("Failed author's post must not carry partial data, got %+v", enriched[1].Botscore)
	}
}

func TestEnrich_EmptyAuthorIsCallerError(t *testing.T) {
	enricher := NewEnricher(newFakeReputation(), newFakeCircles(), 4)

	_, err := enricher.Enrich(context.Background(), []graph.Freet{freet("f1", "", "")})
	if err == nil {
		t.Fatal("Expected error for empty author")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestEnrich_EmptyInput(t *testing.T) {
	enricher := NewEnricher(newFakeReputation(), newFakeCircles(), 4)

	enriched, err := enricher.Enrich(context.Background(), nil)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if len(enriched) != 0 {
		t.Errorf("Expected empty output, got %d entries", len(enriched))
	}
}

func TestEnrich_Cancellation(t *testing.T) {
	enricher := NewEnricher(newFakeReputation(), newFakeCircles(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := enricher.Enrich(ctx, []graph.Freet{
		freet("f1", "alice", ""),
		freet("f2", "bob", ""),
	})
	if err == nil {
		t.Fatal("Expected error from cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFlagged(t *testing.T) {
	over := EnrichedFreet{Botscore: &graph.Botscore{Score: 90, Threshold: 50}}
	under := EnrichedFreet{Botscore: &graph.Botscore{Score: 10, Threshold: 50}}
	absent := EnrichedFreet{}

	if !over.Flagged() {
		t.Error("Score above threshold must flag")
	}
	if under.Flagged() {
		t.Error("Score below threshold must not flag")
	}
	if absent.Flagged() {
		t.Error("Absent botscore must not flag")
	}
}
