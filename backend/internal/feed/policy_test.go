package feed

import (
	"errors"
	"testing"

	"fritter-circles/backend/internal/graph"
)

func restricted(id, author string, members []string) EnrichedFreet {
	return EnrichedFreet{
		Freet:  graph.Freet{ID: id, Author: author, Circle: "close"},
		Circle: CircleInfo{Name: "close", Members: members},
	}
}

func unrestricted(id, author string) EnrichedFreet {
	return EnrichedFreet{Freet: graph.Freet{ID: id, Author: author}}
}

func TestVisibleToViewer(t *testing.T) {
	post := restricted("f1", "alice", []string{"carol"})

	if !post.VisibleToViewer("carol") {
		t.Error("Circle member must see the post")
	}
	if !post.VisibleToViewer("alice") {
		t.Error("Author must see their own post")
	}
	if post.VisibleToViewer("bob") {
		t.Error("Non-member must not see the post")
	}
	if post.VisibleToViewer("") {
		t.Error("Anonymous viewer must not see a restricted post")
	}

	open := unrestricted("f2", "alice")
	if !open.VisibleToViewer("") {
		t.Error("Anonymous viewer must see unrestricted posts")
	}

	// An empty member set restricts to the author alone
	locked := restricted("f3", "alice", []string{})
	if locked.VisibleToViewer("bob") {
		t.Error("Empty circle must only be visible to its author")
	}
	if !locked.VisibleToViewer("alice") {
		t.Error("Author must see their empty-circle post")
	}
}

func TestVisibleTo_PreservesOrderAndKeepsFailures(t *testing.T) {
	failed := unrestricted("f3", "bob")
	failed.Err = errors.New("lookup failed")

	posts := []EnrichedFreet{
		unrestricted("f1", "alice"),
		restricted("f2", "alice", []string{"carol"}),
		failed,
		restricted("f4", "alice", []string{"dave"}),
	}

	visible := VisibleTo("carol", posts)

	var ids []string
	for _, p := range visible {
		ids = append(ids, p.ID)
	}
	want := []string{"f1", "f2", "f3"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("Expected %v, got %v", want, ids)
		}
	}
}
