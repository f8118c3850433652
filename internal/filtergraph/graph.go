// Package filtergraph builds the composition graph for one scene and
// serializes it to the ffmpeg filter_complex grammar. Construction is pure:
// no I/O happens here, which keeps the graph shape testable without ffmpeg.
package filtergraph

import "strings"

// Node is one graph entry: bracketed input labels, a comma-joined filter
// chain and bracketed output labels.
type Node struct {
	Inputs  []string
	Filters []string
	Outputs []string
}

// Graph is the compiled scene: the ordered node list plus the labels of the
// final video and audio streams.
type Graph struct {
	Nodes    []Node
	VideoOut string
	AudioOut string
}

func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString("[")
		b.WriteString(in)
		b.WriteString("]")
	}
	b.WriteString(strings.Join(n.Filters, ","))
	for _, out := range n.Outputs {
		b.WriteString("[")
		b.WriteString(out)
		b.WriteString("]")
	}
	return b.String()
}

// String serializes the graph to the engine grammar: nodes joined by ";".
func (g *Graph) String() string {
	parts := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, ";")
}

func (g *Graph) add(n Node) {
	g.Nodes = append(g.Nodes, n)
}
