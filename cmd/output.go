package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/hurou927/fd-discover/internal/fd"
	"github.com/hurou927/fd-discover/internal/graph"
	"github.com/hurou927/fd-discover/internal/output"
)

// Output formats.
const (
	formatText    = "text"
	formatJSON    = "json"
	formatCopy    = "copy"
	formatMermaid = "mermaid"
	formatGraph   = "graph"
)

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatCopy, formatMermaid, formatGraph:
		return nil
	default:
		return fmt.Errorf("unknown format: %s (supported: text, json, copy, mermaid, graph)", format)
	}
}

// openOutput opens path for writing; "" and "-" mean stdout.
func openOutput(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// writeResults renders deps in format.
func writeResults(w io.Writer, format, relation string, names []string, deps []fd.Dependency) error {
	switch format {
	case formatText:
		return output.WriteTable(w, relation, names, deps)
	case formatJSON:
		return output.WriteJSON(w, relation, names, deps)
	case formatCopy:
		cw := output.NewCopyWriter(w, "")
		if err := cw.WriteHeader(); err != nil {
			return err
		}
		if err := cw.WriteDependencies(relation, names, deps); err != nil {
			return err
		}
		return cw.WriteFooter()
	case formatMermaid:
		return graph.WriteMermaid(w, graph.Build(names, deps))
	case formatGraph:
		return graph.WriteText(w, graph.Build(names, deps))
	default:
		return checkFormat(format)
	}
}
