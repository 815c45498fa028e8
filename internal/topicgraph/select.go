package topicgraph

import (
	"fmt"
	"sort"
)

// Selector picks the topics the suggestion loop explores.
type Selector interface {
	Select(g *Graph, k int) []Node
}

// ByItemCount ranks topics by how many items carry them.
type ByItemCount struct{}

func (ByItemCount) Select(g *Graph, k int) []Node {
	return topK(g, k, func(a, b Node) bool {
		if a.ItemCount != b.ItemCount {
			return a.ItemCount > b.ItemCount
		}
		return a.Name < b.Name
	})
}

// ByMultiplier ranks topics by engagement multiplier.
type ByMultiplier struct{}

func (ByMultiplier) Select(g *Graph, k int) []Node {
	return topK(g, k, func(a, b Node) bool {
		if a.Multiplier != b.Multiplier {
			return a.Multiplier > b.Multiplier
		}
		return a.Name < b.Name
	})
}

func topK(g *Graph, k int, less func(a, b Node) bool) []Node {
	if g == nil || k <= 0 {
		return nil
	}
	nodes := append([]Node(nil), g.Topics...)
	sort.SliceStable(nodes, func(i, j int) bool { return less(nodes[i], nodes[j]) })
	if len(nodes) > k {
		nodes = nodes[:k]
	}
	return nodes
}

// SelectorByName maps a config value to a selector.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "item_count":
		return ByItemCount{}, nil
	case "multiplier":
		return ByMultiplier{}, nil
	}
	return nil, fmt.Errorf("unknown topic selector %q", name)
}
