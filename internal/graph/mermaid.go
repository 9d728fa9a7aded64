package graph

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WriteMermaid writes the graph in Mermaid format to w.
// Each connected component is a subgraph; composite determinants use "&".
func WriteMermaid(w io.Writer, g *Graph) error {
	components := FindComponents(g)
	ids := nodeIDs(g)

	fmt.Fprintln(w, "graph LR")
	if len(g.Constants) > 0 {
		fmt.Fprintln(w, `    empty(("∅"))`)
	}

	for i, comp := range components {
		fmt.Fprintf(w, "    subgraph component_%d\n", i+1)

		members := make(map[string]bool, len(comp.Attributes))
		for _, a := range comp.Attributes {
			members[a] = true
			fmt.Fprintf(w, "        %s[%s]\n", ids[a], strconv.Quote(a))
		}

		for _, edge := range g.Edges {
			if !members[edge.To] || len(edge.From) == 0 {
				continue
			}
			from := make([]string, len(edge.From))
			for j, f := range edge.From {
				from[j] = ids[f]
			}
			fmt.Fprintf(w, "        %s -->%s %s\n", strings.Join(from, " & "), errorLabel(edge.Error), ids[edge.To])
		}

		fmt.Fprintln(w, "    end")
	}

	for _, edge := range g.Edges {
		if len(edge.From) == 0 {
			fmt.Fprintf(w, "    empty -->%s %s\n", errorLabel(edge.Error), ids[edge.To])
		}
	}

	return nil
}

// WriteText writes a text summary of the graph to w.
func WriteText(w io.Writer, g *Graph) error {
	components := FindComponents(g)

	fmt.Fprintf(w, "Attributes: %d\n", len(g.Attributes))
	fmt.Fprintf(w, "Dependencies: %d\n", len(g.Edges))
	fmt.Fprintf(w, "Connected Components: %d\n\n", len(components))

	if len(g.Constants) > 0 {
		fmt.Fprintf(w, "Constant attributes: %v\n\n", g.Constants)
	}
	for _, group := range Equivalences(g) {
		fmt.Fprintf(w, "Equivalent attributes: %v\n", group)
	}

	fmt.Fprintf(w, "Root attributes (not determined by a single attribute): %v\n\n", g.Roots())

	for i, comp := range components {
		fmt.Fprintf(w, "=== Component %d (%d attributes) ===\n", i+1, len(comp.Attributes))

		topo := TopoSort(g, comp.Attributes)
		if topo.HasCycle {
			fmt.Fprintf(w, "  Determination order (partial, has cycle):\n")
		} else {
			fmt.Fprintf(w, "  Determination order:\n")
		}
		for j, a := range topo.Order {
			fmt.Fprintf(w, "    %d. %s (%d determinants)\n", j+1, a, countDeterminants(g, a))
		}
		if topo.HasCycle {
			fmt.Fprintf(w, "  Cyclic attributes: %v\n", topo.Cyclic)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// nodeIDs assigns Mermaid-safe node IDs by column position.
func nodeIDs(g *Graph) map[string]string {
	ids := make(map[string]string, len(g.Attributes))
	for i, a := range g.Attributes {
		ids[a] = fmt.Sprintf("a%d", i)
	}
	return ids
}

func errorLabel(e float64) string {
	if e == 0 {
		return ""
	}
	return "|" + strconv.FormatFloat(e, 'f', 4, 64) + "|"
}

func countDeterminants(g *Graph, attr string) int {
	count := 0
	for _, edge := range g.Edges {
		if edge.To == attr {
			count++
		}
	}
	return count
}
