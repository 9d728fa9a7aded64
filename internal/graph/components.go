package graph

// Component represents a connected component of attributes.
type Component struct {
	Attributes []string
}

// FindComponents detects connected components using undirected BFS. Components
// and their members follow column order.
func FindComponents(g *Graph) []Component {
	visited := make(map[string]bool)
	var components []Component

	for _, name := range g.Attributes {
		if visited[name] {
			continue
		}
		comp := bfs(g, name, visited)
		components = append(components, Component{Attributes: g.inColumnOrder(comp)})
	}

	return components
}

func bfs(g *Graph, start string, visited map[string]bool) map[string]bool {
	queue := []string{start}
	visited[start] = true
	result := map[string]bool{}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result[node] = true

		for neighbor := range g.Adjacency[node] {
			if !visited[neighbor] {
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	return result
}

func (g *Graph) inColumnOrder(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, name := range g.Attributes {
		if set[name] {
			out = append(out, name)
		}
	}
	return out
}
