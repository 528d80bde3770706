// Package tree converts flat parent-referencing lists into forests.
package tree

import (
	"kart-admin/internal/model"
)

// Item is a node of a flat hierarchy. TreeParent returns "" for roots.
type Item interface {
	TreeKey() string
	TreeParent() string
	TreeTitle() string
}

// Node is one built tree node.
type Node struct {
	Title    string `json:"title"`
	Key      string `json:"key"`
	Children []Node `json:"children"`
}

// Forest builds every tree rooted at an item without a parent.
func Forest[T Item](items []T) ([]Node, error) {
	return Build(items, "")
}

// Build returns the nodes whose parent is parentID, each with its subtree.
// Siblings keep their input order. Any cycle in the parent chains of items,
// reachable from parentID or not, fails with *model.CyclicHierarchyError.
func Build[T Item](items []T, parentID string) ([]Node, error) {
	if err := checkCycles(items); err != nil {
		return nil, err
	}
	return build(items, parentID, map[string]bool{}, nil)
}

func build[T Item](items []T, parentID string, onPath map[string]bool, path []string) ([]Node, error) {
	nodes := []Node{}
	for _, item := range items {
		if item.TreeParent() != parentID {
			continue
		}
		key := item.TreeKey()
		if onPath[key] {
			return nil, &model.CyclicHierarchyError{Path: append(append([]string(nil), path...), key)}
		}

		onPath[key] = true
		children, err := build(items, key, onPath, append(path, key))
		delete(onPath, key)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, Node{
			Title:    item.TreeTitle(),
			Key:      key,
			Children: children,
		})
	}
	return nodes, nil
}

// checkCycles walks the ancestor chain of every item. Chains end at a root or
// at a parent id that is not in the list.
func checkCycles[T Item](items []T) error {
	parents := make(map[string]string, len(items))
	for _, item := range items {
		parents[item.TreeKey()] = item.TreeParent()
	}

	done := make(map[string]bool, len(items))
	for _, item := range items {
		seen := map[string]int{}
		var chain []string
		for id := item.TreeKey(); id != "" && !done[id]; id = parents[id] {
			if at, ok := seen[id]; ok {
				return &model.CyclicHierarchyError{Path: append(chain[at:], id)}
			}
			if _, known := parents[id]; !known {
				break
			}
			seen[id] = len(chain)
			chain = append(chain, id)
		}
		for _, id := range chain {
			done[id] = true
		}
	}
	return nil
}

// Flatten returns every key of the forest in depth-first order.
func Flatten(nodes []Node) []string {
	var keys []string
	for _, n := range nodes {
		keys = append(keys, n.Key)
		keys = append(keys, Flatten(n.Children)...)
	}
	return keys
}

// Count returns the number of nodes in the forest.
func Count(nodes []Node) int {
	total := 0
	for _, n := range nodes {
		total += 1 + Count(n.Children)
	}
	return total
}

// Orphans returns the items whose parent id is set but not present in items.
// They never appear in a built forest.
func Orphans[T Item](items []T) []T {
	keys := make(map[string]bool, len(items))
	for _, item := range items {
		keys[item.TreeKey()] = true
	}
	var out []T
	for _, item := range items {
		if p := item.TreeParent(); p != "" && !keys[p] {
			out = append(out, item)
		}
	}
	return out
}

// Descendants returns the keys of every item below id.
func Descendants[T Item](items []T, id string) []string {
	children := make(map[string][]string, len(items))
	for _, item := range items {
		children[item.TreeParent()] = append(children[item.TreeParent()], item.TreeKey())
	}

	var out []string
	visited := map[string]bool{id: true}
	queue := append([]string(nil), children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, children[next]...)
	}
	return out
}

// WouldCycle reports whether re-parenting id under newParent closes a loop.
func WouldCycle[T Item](items []T, id, newParent string) bool {
	if newParent == "" {
		return false
	}
	if newParent == id {
		return true
	}
	for _, d := range Descendants(items, id) {
		if d == newParent {
			return true
		}
	}
	return false
}
