package comments

import (
	"sort"

	"github.com/alphabot-ai/debateboard/internal/store"
)

// childIndex groups comments by parent id; top-level comments sit under ""
func childIndex(flat []*store.Comment) map[string][]*store.Comment {
	index := make(map[string][]*store.Comment, len(flat))
	for _, c := range flat {
		index[c.ParentID] = append(index[c.ParentID], c)
	}
	for _, children := range index {
		sort.SliceStable(children, func(i, j int) bool {
			return children[i].CreatedAt.Before(children[j].CreatedAt)
		})
	}
	return index
}

// buildTree nests a flat comment set. The input is not modified; every returned node
// is a copy. Comments whose parent is missing from the set are dropped.
func buildTree(flat []*store.Comment) []*store.Comment {
	copies := make([]*store.Comment, len(flat))
	for i, c := range flat {
		cc := *c
		cc.Replies = nil
		copies[i] = &cc
	}

	index := childIndex(copies)
	for _, c := range copies {
		c.Replies = index[c.ID]
	}

	roots := index[""]
	if roots == nil {
		roots = []*store.Comment{}
	}
	return roots
}

// subtreeIDs returns root and all its descendants, parents before children
func subtreeIDs(index map[string][]*store.Comment, root string) []string {
	ids := []string{root}
	seen := map[string]bool{root: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range index[ids[i]] {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			ids = append(ids, child.ID)
		}
	}
	return ids
}
