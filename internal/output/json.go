package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/hurou927/fd-discover/internal/fd"
)

// Record is the JSON form of a dependency with attribute names resolved.
type Record struct {
	Relation    string   `json:"relation,omitempty"`
	Determinant []string `json:"determinant"`
	Dependent   string   `json:"dependent"`
	Error       float64  `json:"error"`
}

// NewRecord resolves d against names.
func NewRecord(relation string, names []string, d fd.Dependency) Record {
	return Record{
		Relation:    relation,
		Determinant: d.DeterminantNames(names),
		Dependent:   fd.AttributeName(names, d.Dependent),
		Error:       d.Error,
	}
}

// JSONSink writes one JSON object per line as dependencies are emitted.
type JSONSink struct {
	mu       sync.Mutex
	enc      *json.Encoder
	relation string
	names    []string
}

// NewJSONSink returns a sink writing JSON lines to w.
func NewJSONSink(w io.Writer, relation string, names []string) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w), relation: relation, names: names}
}

// Emit writes d.
func (s *JSONSink) Emit(d fd.Dependency) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(NewRecord(s.relation, s.names, d))
}

// WriteJSON writes deps as JSON lines.
func WriteJSON(w io.Writer, relation string, names []string, deps []fd.Dependency) error {
	s := NewJSONSink(w, relation, names)
	for _, d := range deps {
		if err := s.Emit(d); err != nil {
			return err
		}
	}
	return nil
}
