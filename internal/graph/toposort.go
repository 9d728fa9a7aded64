package graph

// TopoResult holds the result of topological sorting.
type TopoResult struct {
	// Order lists attributes so that determinants come before their dependents.
	Order []string
	// HasCycle is true if some attributes determine each other.
	HasCycle bool
	// Cyclic lists attributes on or downstream of a cycle.
	Cyclic []string
}

// TopoSort performs Kahn's algorithm over the unary edges among attrs.
func TopoSort(g *Graph, attrs []string) TopoResult {
	attrSet := make(map[string]bool, len(attrs))
	for _, a := range attrs {
		attrSet[a] = true
	}

	inDegree := make(map[string]int, len(attrs))
	for _, a := range attrs {
		inDegree[a] = 0
	}

	localChildren := make(map[string][]string)
	for _, a := range attrs {
		for _, p := range g.Parents[a] {
			if attrSet[p] {
				localChildren[p] = append(localChildren[p], a)
				inDegree[a]++
			}
		}
	}

	var queue []string
	for _, a := range attrs {
		if inDegree[a] == 0 {
			queue = append(queue, a)
		}
	}

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, child := range localChildren[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	result := TopoResult{Order: order}

	if len(order) < len(attrs) {
		result.HasCycle = true
		for _, a := range attrs {
			if inDegree[a] > 0 {
				result.Cyclic = append(result.Cyclic, a)
			}
		}
	}

	return result
}

// TopoSortAll performs topological sort across all attributes in the graph.
func TopoSortAll(g *Graph) TopoResult {
	return TopoSort(g, g.Attributes)
}

// Equivalences groups attributes that determine each other through single-attribute
// dependencies. Only groups of two or more are returned, in column order.
func Equivalences(g *Graph) [][]string {
	reach := make(map[string]map[string]bool, len(g.Attributes))
	for _, a := range g.Attributes {
		seen := map[string]bool{a: true}
		stack := []string{a}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, c := range g.Children[n] {
				if !seen[c] {
					seen[c] = true
					stack = append(stack, c)
				}
			}
		}
		reach[a] = seen
	}

	assigned := make(map[string]bool)
	var groups [][]string
	for _, a := range g.Attributes {
		if assigned[a] {
			continue
		}
		group := []string{a}
		for _, b := range g.Attributes {
			if b != a && !assigned[b] && reach[a][b] && reach[b][a] {
				group = append(group, b)
			}
		}
		if len(group) < 2 {
			continue
		}
		for _, m := range group {
			assigned[m] = true
		}
		groups = append(groups, group)
	}
	return groups
}
