package feed

// Visibility is a policy layered on top of enrichment, never inside it:
// Enrich always preserves cardinality, and callers opt in to filtering.

// VisibleToViewer reports whether the freet's intended audience includes
// the viewer. Unrestricted freets (no tag, the sentinel, or a tag that did
// not resolve) are visible to everyone; restricted freets are visible to
// their author and to circle members. An empty viewer is anonymous.
func (e EnrichedFreet) VisibleToViewer(viewer string) bool {
	if !e.Circle.Restricted() {
		return true
	}
	if viewer == "" {
		return false
	}
	if viewer == e.Author {
		return true
	}
	for _, m := range e.Circle.Members {
		if m == viewer {
			return true
		}
	}
	return false
}

// VisibleTo filters an enriched feed down to what the viewer may see,
// preserving order. Posts whose enrichment failed are kept; a transient
// lookup failure must not hide an unrestricted post.
func VisibleTo(viewer string, freets []EnrichedFreet) []EnrichedFreet {
	visible := make([]EnrichedFreet, 0, len(freets))
	for _, f := range freets {
		if f.Err != nil || f.VisibleToViewer(viewer) {
			visible = append(visible, f)
		}
	}
	return visible
}
