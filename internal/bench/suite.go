package bench

import (
	"fmt"

	"github.com/23skdu/longbow-matbench/internal/backend"
)

// Entry is one column of the report: a backend and how many times to time it.
type Entry struct {
	Backend backend.Backend
	Repeat  int
}

// Suite runs every entry at every size, sizes in the order given.
type Suite struct {
	Sizes   []int
	Entries []Entry

	// OnResult, if set, is called as soon as each result is available.
	OnResult func(Result)
}

// Run stops at the first failing entry and returns the results gathered so
// far together with the error.
func (s *Suite) Run(r *Runner) ([]Result, error) {
	if len(s.Entries) == 0 {
		return nil, fmt.Errorf("suite has no backends")
	}
	results := make([]Result, 0, len(s.Sizes)*len(s.Entries))
	for _, size := range s.Sizes {
		for _, e := range s.Entries {
			res, err := r.Run(backend.Square(size), e.Repeat, e.Backend)
			if err != nil {
				return results, err
			}
			if s.OnResult != nil {
				s.OnResult(res)
			}
			results = append(results, res)
		}
	}
	return results, nil
}

// Names lists the entry backends in column order.
func (s *Suite) Names() []string {
	names := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		names[i] = e.Backend.Name()
	}
	return names
}
