// Package topicgraph computes per-topic engagement multipliers and the
// directed topic co-occurrence graph for a tenant.
package topicgraph

import (
	"math"
	"sort"
)

type Params struct {
	MinimumSampleSize    int     `json:"minimum_sample_size"`
	RegularizationWeight float64 `json:"regularization_weight"`
	WeightViews          float64 `json:"weight_views"`
	WeightLikes          float64 `json:"weight_likes"`
	WeightComments       float64 `json:"weight_comments"`
	WeightDuration       float64 `json:"weight_duration"`
	MaxEdgesPerTopic     int     `json:"max_edges_per_topic"`
	ExemplarsPerTopic    int     `json:"exemplars_per_topic"`
}

func DefaultParams() Params {
	return Params{
		MinimumSampleSize:    3,
		RegularizationWeight: 10,
		WeightViews:          1,
		WeightLikes:          10,
		WeightComments:       20,
		MaxEdgesPerTopic:     5,
		ExemplarsPerTopic:    3,
	}
}

// SnapshotItem is one item with its engagement and its union of topics.
type SnapshotItem struct {
	ID              string
	ChannelID       string
	Views           int64
	Likes           int64
	Comments        int64
	DurationSeconds *int32
	Topics          []string
}

type Snapshot struct {
	Items []SnapshotItem
}

type Exemplar struct {
	ItemID   string  `json:"item_id"`
	RawScore float64 `json:"raw_score"`
}

// Node is a retained topic. Index is its position in Graph.Topics.
type Node struct {
	Index      int        `json:"index"`
	Name       string     `json:"name"`
	ItemCount  int        `json:"item_count"`
	Multiplier float64    `json:"multiplier"`
	Exemplars  []Exemplar `json:"exemplars"`
}

// Edge is directed: Weight is the share of Source's items that also carry Target.
type Edge struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Weight float64 `json:"weight"`
}

// Graph is index-based: edges refer to topics by position. Topics are
// sorted by name; edges by source, then weight descending, then target name.
type Graph struct {
	Params    Params `json:"params"`
	ItemCount int    `json:"item_count"`
	Topics    []Node `json:"topics"`
	Edges     []Edge `json:"edges"`
}

// Lookup finds a topic by name.
func (g *Graph) Lookup(name string) (Node, bool) {
	i := sort.Search(len(g.Topics), func(i int) bool { return g.Topics[i].Name >= name })
	if i < len(g.Topics) && g.Topics[i].Name == name {
		return g.Topics[i], true
	}
	return Node{}, false
}

// Outgoing returns the edges leaving topic index i.
func (g *Graph) Outgoing(i int) []Edge {
	lo := sort.Search(len(g.Edges), func(k int) bool { return g.Edges[k].Source >= i })
	hi := lo
	for hi < len(g.Edges) && g.Edges[hi].Source == i {
		hi++
	}
	return g.Edges[lo:hi]
}

// RawScore is the weighted engagement of one item.
func RawScore(it SnapshotItem, p Params) float64 {
	score := float64(it.Views)*p.WeightViews +
		float64(it.Likes)*p.WeightLikes +
		float64(it.Comments)*p.WeightComments
	if p.WeightDuration > 0 && it.DurationSeconds != nil && *it.DurationSeconds > 0 {
		minutes := float64(*it.DurationSeconds) / 60
		score *= 1 + p.WeightDuration*math.Log1p(minutes)
	}
	return score
}

type scored struct {
	id         string
	raw        float64
	normalized float64
}

// Build computes the graph for a snapshot. It is pure: the same snapshot and
// params always produce the same graph regardless of item order.
func Build(s Snapshot, p Params) *Graph {
	if p.MaxEdgesPerTopic <= 0 {
		p.MaxEdgesPerTopic = 5
	}
	if p.ExemplarsPerTopic <= 0 {
		p.ExemplarsPerTopic = 3
	}
	if p.MinimumSampleSize <= 0 {
		p.MinimumSampleSize = 1
	}

	items := append([]SnapshotItem(nil), s.Items...)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	scores := make([]scored, len(items))
	channelSum := map[string]float64{}
	channelCount := map[string]int{}
	for i, it := range items {
		raw := RawScore(it, p)
		scores[i] = scored{id: it.ID, raw: raw}
		channelSum[it.ChannelID] += raw
		channelCount[it.ChannelID]++
	}
	for i, it := range items {
		mean := channelSum[it.ChannelID] / float64(channelCount[it.ChannelID])
		if mean == 0 {
			scores[i].normalized = 1.0
			continue
		}
		scores[i].normalized = scores[i].raw / mean
	}

	members := map[string][]int{}
	for i, it := range items {
		seen := map[string]bool{}
		for _, t := range it.Topics {
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			members[t] = append(members[t], i)
		}
	}

	names := make([]string, 0, len(members))
	for name, idx := range members {
		if len(idx) >= p.MinimumSampleSize {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	g := &Graph{Params: p, ItemCount: len(items), Topics: make([]Node, len(names)), Edges: []Edge{}}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
		idx := members[name]

		sum := 0.0
		for _, k := range idx {
			sum += scores[k].normalized
		}
		n := float64(len(idx))

		g.Topics[i] = Node{
			Index:      i,
			Name:       name,
			ItemCount:  len(idx),
			Multiplier: (sum + p.RegularizationWeight*1.0) / (n + p.RegularizationWeight),
			Exemplars:  exemplars(idx, scores, p.ExemplarsPerTopic),
		}
	}

	// co[a][b] = items carrying both retained topics a and b.
	co := make([]map[int]int, len(names))
	for i := range co {
		co[i] = map[int]int{}
	}
	for _, it := range items {
		var retained []int
		seen := map[int]bool{}
		for _, t := range it.Topics {
			if k, ok := index[t]; ok && !seen[k] {
				seen[k] = true
				retained = append(retained, k)
			}
		}
		for _, a := range retained {
			for _, b := range retained {
				if a != b {
					co[a][b]++
				}
			}
		}
	}

	for a := range names {
		edges := make([]Edge, 0, len(co[a]))
		for b, shared := range co[a] {
			edges = append(edges, Edge{
				Source: a,
				Target: b,
				Weight: float64(shared) / float64(g.Topics[a].ItemCount),
			})
		}
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].Weight != edges[j].Weight {
				return edges[i].Weight > edges[j].Weight
			}
			return names[edges[i].Target] < names[edges[j].Target]
		})
		if len(edges) > p.MaxEdgesPerTopic {
			edges = edges[:p.MaxEdgesPerTopic]
		}
		g.Edges = append(g.Edges, edges...)
	}

	return g
}

func exemplars(idx []int, scores []scored, n int) []Exemplar {
	ranked := make([]scored, len(idx))
	for i, k := range idx {
		ranked[i] = scores[k]
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].raw != ranked[j].raw {
			return ranked[i].raw > ranked[j].raw
		}
		return ranked[i].id < ranked[j].id
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]Exemplar, len(ranked))
	for i, r := range ranked {
		out[i] = Exemplar{ItemID: r.id, RawScore: r.raw}
	}
	return out
}
