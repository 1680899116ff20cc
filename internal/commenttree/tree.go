// Package commenttree rebuilds the reply tree of a post from its flat comment
// list. Trees are derived views: they are built fresh on every call and never
// stored.
package commenttree

import (
	"sort"

	"github.com/zetareticula/forumsync/internal/model"
)

// DefaultMaxReplyDepth is the nesting level below which the presentation layer
// offers a reply action. The assembler itself builds trees of any depth.
const DefaultMaxReplyDepth = 3

// Node is a comment and its direct replies in input order.
type Node struct {
	Comment model.Comment
	Replies []*Node
}

const noParent = -1

// Assemble returns the root nodes of comments. Input order is kept at every
// level; callers wanting another order sort the flat list first.
//
// A comment becomes a root when its parent id is empty, names no comment in
// the input, names a comment of another post, or names itself. When parent
// links form a loop, the loop member that comes first in the input becomes a
// root, so every input comment appears exactly once. With duplicate ids,
// replies attach to the first occurrence.
func Assemble(comments []model.Comment) []*Node {
	nodes := make([]*Node, len(comments))
	index := make(map[string]int, len(comments))
	for i, c := range comments {
		nodes[i] = &Node{Comment: c.DeepCopy()}
		if _, dup := index[c.ID]; !dup {
			index[c.ID] = i
		}
	}

	parent := make([]int, len(comments))
	for i, c := range comments {
		parent[i] = noParent
		if !c.IsReply() {
			continue
		}
		p, ok := index[*c.ParentID]
		if !ok || p == i || comments[p].PostID != c.PostID {
			continue
		}
		parent[i] = p
	}
	breakLoops(parent)

	var roots []*Node
	for i, n := range nodes {
		if parent[i] == noParent {
			roots = append(roots, n)
			continue
		}
		p := nodes[parent[i]]
		p.Replies = append(p.Replies, n)
	}
	return roots
}

// breakLoops detaches, for every parent loop, the member with the lowest index.
func breakLoops(parent []int) {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(parent))
	for start := range parent {
		if state[start] != unvisited {
			continue
		}
		var path []int
		cur := start
		for cur != noParent && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = parent[cur]
		}
		if cur != noParent && state[cur] == onPath {
			first := 0
			for path[first] != cur {
				first++
			}
			lowest := cur
			for _, member := range path[first:] {
				if member < lowest {
					lowest = member
				}
			}
			parent[lowest] = noParent
		}
		for _, n := range path {
			state[n] = done
		}
	}
}

// Count returns the number of nodes in the trees.
func Count(roots []*Node) int {
	n := 0
	Walk(roots, func(*Node, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits the trees depth first, parents before replies. Roots have depth
// zero. Returning false from fn skips the replies of that node.
func Walk(roots []*Node, fn func(n *Node, depth int) bool) {
	var visit func(ns []*Node, depth int)
	visit = func(ns []*Node, depth int) {
		for _, n := range ns {
			if fn(n, depth) {
				visit(n.Replies, depth+1)
			}
		}
	}
	visit(roots, 0)
}

// Find returns the node with id, or nil.
func Find(roots []*Node, id string) *Node {
	var found *Node
	Walk(roots, func(n *Node, _ int) bool {
		if found == nil && n.Comment.ID == id {
			found = n
		}
		return found == nil
	})
	return found
}

// CanReply reports whether a node at depth still offers a reply action.
func CanReply(depth, maxDepth int) bool {
	return depth < maxDepth
}

// SortNewestFirst returns a copy of comments ordered by descending creation
// time. Ties keep their input order.
func SortNewestFirst(comments []model.Comment) []model.Comment {
	out := append([]model.Comment(nil), comments...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SortMostLiked returns a copy of comments ordered by descending likes. Ties
// keep their input order.
func SortMostLiked(comments []model.Comment) []model.Comment {
	out := append([]model.Comment(nil), comments...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Likes > out[j].Likes
	})
	return out
}
