package harvest

import (
	"fmt"
	"math"

	"github.com/pdiddy/catalog-harvester/pkg/types"
)

// Partition splits the catalog window [offset, offset+total) into page-sized
// chunks. The chunks are disjoint, ordered, and cover the window exactly;
// the last chunk is short when total is not a multiple of pageSize.
func Partition(offset, total, pageSize int) ([]types.ChunkJob, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, pageSize)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	if total <= 0 {
		return nil, nil
	}
	if offset > math.MaxInt-total {
		return nil, fmt.Errorf("%w: window [%d, +%d) exceeds the addressable range", ErrInvalidOffset, offset, total)
	}

	jobs := make([]types.ChunkJob, 0, total/pageSize+1)
	for start, remaining := offset, total; remaining > 0; {
		limit := min(pageSize, remaining)
		jobs = append(jobs, types.ChunkJob{Offset: start, Limit: limit})
		start += limit
		remaining -= limit
	}
	return jobs, nil
}
