package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ResolveConstraints records, for every dimension of flowID, the code ids of
// its codelist, and writes <flow>__constraints.jsonl. Dimensions come from
// the persisted data structure file, which is built first when missing. A
// failed codelist fetch leaves that dimension without constraints and never
// aborts the others.
func (b *Builder) ResolveConstraints(ctx context.Context, flowID string) (int, error) {
	dims, err := b.store.Dimensions(flowID)
	if IsMissing(err) {
		dims, err = b.BuildDatastructures(ctx, flowID)
	}
	if err != nil {
		return 0, err
	}
	if len(dims) == 0 {
		return 0, fmt.Errorf("dataflow %s: no dimensions to constrain", flowID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Concurrency)
	for i := range dims {
		g.Go(func() error {
			codes, err := b.codeIDs(gctx, dims[i].EnumerationRefID)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				b.logger.Warn("constraints unavailable", "dataflow", flowID, "codelist", dims[i].EnumerationRefID, "error", err)
				return nil
			}
			if len(codes) > 0 {
				dims[i].Constraints = codes
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := WriteJSONL(b.store.ConstraintsPath(flowID), dims); err != nil {
		return 0, err
	}
	var constrained int
	for _, d := range dims {
		if len(d.Constraints) > 0 {
			constrained++
		}
	}
	b.record(flowID+"__constraints.jsonl", len(dims))
	b.logger.Info("constraints saved", "dataflow", flowID, "dimensions", len(dims), "constrained", constrained)
	return constrained, nil
}

func (b *Builder) codeIDs(ctx context.Context, codelistID string) ([]string, error) {
	if codelistID == TerritoryCodelist {
		cl, err := b.territoryCodelist(ctx)
		if err != nil {
			return nil, err
		}
		return cl.CodeIDs(), nil
	}
	cl, _, err := b.client.FetchCodelist(ctx, codelistID)
	if err != nil {
		return nil, err
	}
	return cl.CodeIDs(), nil
}
