package postgres

import (
	"fmt"
	"strings"

	"github.com/saturn-network/market-maker-strategy/internal/domain"
)

// pageQuery appends the time window, ordering and pagination of opts to a
// SELECT that already carries a WHERE clause, numbering placeholders after
// the args already present.
func pageQuery(base string, args []any, opts domain.ListOpts) (string, []any) {
	var b strings.Builder
	b.WriteString(base)

	next := func(v any) int {
		args = append(args, v)
		return len(args)
	}
	if opts.Since != nil {
		fmt.Fprintf(&b, " AND created_at >= $%d", next(*opts.Since))
	}
	if opts.Until != nil {
		fmt.Fprintf(&b, " AND created_at <= $%d", next(*opts.Until))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if opts.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT $%d", next(opts.Limit))
	}
	if opts.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET $%d", next(opts.Offset))
	}
	return b.String(), args
}
