package partition

const unset = -1

// Scratch holds the per-tuple work arrays used by Multiply and ErrorAgainst.
// A Scratch is not safe for concurrent use; parallel callers need one each.
type Scratch struct {
	tupleToClass []int
	buckets      [][]int
}

// NewScratch returns a Scratch for relations of n tuples.
func NewScratch(n int) *Scratch {
	s := &Scratch{tupleToClass: make([]int, n)}
	for i := range s.tupleToClass {
		s.tupleToClass[i] = unset
	}
	return s
}

// Multiply returns the partition of the union of the attribute sets of p1 and p2.
// It touches only the tuples covered by p1 and p2.
func (s *Scratch) Multiply(p1, p2 *Stripped) *Stripped {
	for i, class := range p1.classes {
		for _, t := range class {
			s.tupleToClass[t] = i
		}
	}
	if cap(s.buckets) < len(p1.classes) {
		s.buckets = make([][]int, len(p1.classes))
	}
	buckets := s.buckets[:len(p1.classes)]

	out := &Stripped{}
	var touched []int
	for _, class := range p2.classes {
		touched = touched[:0]
		for _, t := range class {
			idx := s.tupleToClass[t]
			if idx == unset {
				continue
			}
			if len(buckets[idx]) == 0 {
				touched = append(touched, idx)
			}
			buckets[idx] = append(buckets[idx], t)
		}
		for _, idx := range touched {
			if len(buckets[idx]) > 1 {
				refined := make([]int, len(buckets[idx]))
				copy(refined, buckets[idx])
				out.classes = append(out.classes, refined)
				out.elementCount += len(refined)
			}
			buckets[idx] = buckets[idx][:0]
		}
	}

	for _, class := range p1.classes {
		for _, t := range class {
			s.tupleToClass[t] = unset
		}
	}
	return out
}

// ErrorAgainst returns the g3 error of the dependency parent → child: the fraction of
// the n tuples that must be removed so that child's attributes no longer split any class
// of parent. The child partition must refine the parent partition.
func (s *Scratch) ErrorAgainst(parent, child *Stripped, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(s.removals(parent, child)) / float64(n)
}

// removals returns the unnormalized g3 count.
func (s *Scratch) removals(parent, child *Stripped) int {
	for _, class := range child.classes {
		for _, t := range class {
			s.tupleToClass[t] = len(class)
		}
	}
	removed := 0
	for _, class := range parent.classes {
		largest := 1
		for _, t := range class {
			if size := s.tupleToClass[t]; size > largest {
				largest = size
			}
		}
		removed += len(class) - largest
	}
	for _, class := range child.classes {
		for _, t := range class {
			s.tupleToClass[t] = unset
		}
	}
	return removed
}

// Multiply is Scratch.Multiply with a scratch allocated for this call.
func Multiply(p1, p2 *Stripped, n int) *Stripped {
	return NewScratch(n).Multiply(p1, p2)
}

// ErrorAgainst is Scratch.ErrorAgainst with a scratch allocated for this call.
func ErrorAgainst(parent, child *Stripped, n int) float64 {
	return NewScratch(n).ErrorAgainst(parent, child, n)
}
