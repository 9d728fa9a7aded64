package tane

import (
	"context"
	"fmt"

	"github.com/hurou927/fd-discover/internal/lattice"
)

// State is the search state at a level boundary: Current is about to be processed
// and Previous holds its generalizations.
type State struct {
	NumAttributes int
	NumTuples     int
	Previous      *lattice.Level
	Current       *lattice.Level
}

// Checkpointer persists states. Save must not keep references to the levels after
// it returns, since the engine keeps mutating them.
type Checkpointer interface {
	Save(ctx context.Context, st *State) error
}

func (st *State) validate() error {
	if st == nil || st.Previous == nil || st.Current == nil {
		return fmt.Errorf("missing level")
	}
	if st.NumAttributes <= 0 {
		return fmt.Errorf("attribute count %d", st.NumAttributes)
	}
	if st.NumTuples <= 0 {
		return fmt.Errorf("tuple count %d", st.NumTuples)
	}
	if st.Current.Height != st.Previous.Height+1 {
		return fmt.Errorf("current level %d does not follow level %d", st.Current.Height, st.Previous.Height)
	}
	return nil
}
