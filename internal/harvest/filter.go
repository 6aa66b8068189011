package harvest

import "github.com/pdiddy/catalog-harvester/pkg/types"

// Filter holds the source URLs known to exist in the store and drops
// candidates that repeat one. It is seeded once per job and is not safe for
// concurrent use: only the harvester's control goroutine touches it.
//
// The store's unique constraint remains the authority; Filter only keeps
// known duplicates out of write transactions.
type Filter struct {
	known map[string]struct{}
}

// NewFilter returns a Filter seeded with keys.
func NewFilter(keys []string) *Filter {
	known := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		known[k] = struct{}{}
	}
	return &Filter{known: known}
}

// FilterNew returns the candidates whose key is not yet known, in input
// order, and the number dropped as duplicates. A kept key is marked known
// immediately, so a repeat later in the same batch or in a later batch is
// dropped even before the first copy is written.
func (f *Filter) FilterNew(candidates []types.Record) ([]types.Record, int) {
	kept := make([]types.Record, 0, len(candidates))
	dups := 0
	for _, r := range candidates {
		key := r.Key()
		if _, ok := f.known[key]; ok {
			dups++
			continue
		}
		f.known[key] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dups
}

// Forget unmarks the keys of records whose write was rolled back, so a
// later chunk carrying the same record can still persist it.
func (f *Filter) Forget(records []types.Record) {
	for _, r := range records {
		delete(f.known, r.Key())
	}
}

// Len returns the number of known keys.
func (f *Filter) Len() int {
	return len(f.known)
}
