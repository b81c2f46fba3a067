// Package graph finds connected components of small undirected graphs.
package graph

import "sort"

type Graph struct {
	adj [][]int
}

func NewGraph(n int) *Graph {
	return &Graph{make([][]int, n)}
}

func (g *Graph) Len() int { return len(g.adj) }

func (g *Graph) AddEdge(u, v int) {
	g.adj[u] = append(g.adj[u], v)
	g.adj[v] = append(g.adj[v], u)
}

// Components returns the connected components. Each component is sorted,
// and components are ordered by their smallest node.
func (g *Graph) Components() [][]int {
	n := len(g.adj)
	visited := make([]bool, n)
	var components [][]int

	var dfs func(v int, component *[]int)
	dfs = func(v int, component *[]int) {
		visited[v] = true
		*component = append(*component, v)
		for _, w := range g.adj[v] {
			if !visited[w] {
				dfs(w, component)
			}
		}
	}

	for i := 0; i < n; i++ {
		if !visited[i] {
			var component []int
			dfs(i, &component)
			sort.Ints(component)
			components = append(components, component)
		}
	}
	return components
}
