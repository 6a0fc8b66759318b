package graph

import "sort"

// cycleResultCap bounds cycle enumeration so dense graphs cannot blow up the
// search. Anchors are visited in sorted order, so the smallest cycles are
// found before the cap bites.
const cycleResultCap = 20

// elementaryCycles enumerates elementary cycles (each node visited at most
// once) of length 2..maxDepth in the given digraph.
//
// DFS with an on-path set, anchored at each node in sorted order. A search
// rooted at anchor a only visits nodes ordered after a, so every cycle is
// found exactly once, presented starting from its smallest node; rotations
// can never duplicate. Adjacency is iterated in sorted order, making the
// result deterministic for a given graph state.
func elementaryCycles(adj map[string]map[string]bool, maxDepth, limit int) [][]string {
	nodes := make([]string, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	sorted := make(map[string][]string, len(adj))
	for n, succ := range adj {
		out := make([]string, 0, len(succ))
		for m := range succ {
			out = append(out, m)
		}
		sort.Strings(out)
		sorted[n] = out
	}

	var cycles [][]string
	onPath := make(map[string]bool)
	path := make([]string, 0, maxDepth)

	var dfs func(anchor, node string)
	dfs = func(anchor, node string) {
		if len(cycles) >= limit {
			return
		}
		path = append(path, node)
		onPath[node] = true
		for _, next := range sorted[node] {
			if len(cycles) >= limit {
				break
			}
			if next == anchor {
				if len(path) >= 2 {
					cycles = append(cycles, append([]string(nil), path...))
				}
				continue
			}
			// Nodes ordered before the anchor belong to earlier searches.
			if next < anchor || onPath[next] {
				continue
			}
			if len(path) < maxDepth {
				dfs(anchor, next)
			}
		}
		onPath[node] = false
		path = path[:len(path)-1]
	}

	for _, anchor := range nodes {
		if len(cycles) >= limit {
			break
		}
		dfs(anchor, anchor)
	}
	return cycles
}

// CircularGSTINs flattens detected cycles into a membership set.
func CircularGSTINs(cycles [][]string) map[string]bool {
	members := make(map[string]bool)
	for _, cycle := range cycles {
		for _, gstin := range cycle {
			members[gstin] = true
		}
	}
	return members
}
