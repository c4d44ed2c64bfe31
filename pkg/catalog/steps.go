package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/istat-census/pkg/itter"
)

// Step is one unit of the offline build. Run returns the number of records
// it produced.
type Step struct {
	ID          string
	Description string
	Run         func(ctx context.Context) (int, error)
}

// Steps returns the build steps in execution order: dataflows, then data
// structures and constraints per useful dataflow, then the deduplicated
// dimensions, the territorial partitions, the raw XML codelists and the
// dimension codelist exports. Territorial extraction reads the constraints
// written by the earlier steps.
func (b *Builder) Steps() []Step {
	steps := []Step{{
		ID:          "dataflows",
		Description: "Dataflow listing (all and useful)",
		Run:         b.BuildDataflows,
	}}

	for _, id := range b.cfg.UsefulDataflows {
		steps = append(steps,
			Step{
				ID:          "datastructures:" + id,
				Description: "Dimensions of dataflow " + id,
				Run: func(ctx context.Context) (int, error) {
					dims, err := b.BuildDatastructures(ctx, id)
					return len(dims), err
				},
			},
			Step{
				ID:          "constraints:" + id,
				Description: "Codelist constraints of dataflow " + id,
				Run: func(ctx context.Context) (int, error) {
					return b.ResolveConstraints(ctx, id)
				},
			},
		)
	}

	steps = append(steps, Step{
		ID:          "useful-datastructures",
		Description: "Deduplicated dimensions of the useful dataflows",
		Run:         func(context.Context) (int, error) { return b.SaveUsefulDatastructures() },
	})

	if flow := b.cfg.TerritoryFlow; flow != "" {
		for _, t := range itter.Types {
			steps = append(steps, Step{
				ID:          "territories:" + string(t),
				Description: fmt.Sprintf("Territorial partition %s of dataflow %s", t.Name(), flow),
				Run: func(ctx context.Context) (int, error) {
					return b.ExtractTerritories(ctx, flow, t)
				},
			})
		}
	}

	for _, cl := range b.cfg.XMLCodelists {
		steps = append(steps, Step{
			ID:          "xml:" + cl,
			Description: "Raw SDMX-ML of codelist " + cl,
			Run: func(ctx context.Context) (int, error) {
				return b.SaveCodelistXML(ctx, cl)
			},
		})
	}

	if flow := b.cfg.TerritoryFlow; flow != "" {
		for _, cl := range b.cfg.Codelists {
			steps = append(steps, Step{
				ID:          "codelist:" + cl,
				Description: fmt.Sprintf("Codelist %s of dataflow %s", cl, flow),
				Run: func(ctx context.Context) (int, error) {
					return b.ExportCodelist(ctx, flow, cl)
				},
			})
		}
	}
	return steps
}

// Run executes the steps whose id is in only (every step when only is
// empty). A failed step is logged and the build continues; the returned
// error joins every step failure. The manifest is written in all cases
// unless the context was cancelled.
func (b *Builder) Run(ctx context.Context, only ...string) (*Manifest, error) {
	want := toSet(only)
	var (
		results []StepResult
		errs    []error
	)
	for _, step := range b.Steps() {
		if len(want) > 0 && !want[step.ID] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		n, err := step.Run(ctx)
		elapsed := time.Since(start)

		res := StepResult{ID: step.ID, Records: n, Elapsed: elapsed.Round(time.Millisecond)}
		outcome := "ok"
		if err != nil {
			outcome = "error"
			res.Error = err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", step.ID, err))
			b.logger.Error("build step failed", "step", step.ID, "error", err)
		} else {
			b.logger.Info("build step done", "step", step.ID, "records", n, "elapsed", res.Elapsed)
		}
		if b.observer != nil {
			b.observer.ObserveStep(step.ID, outcome, elapsed)
		}
		results = append(results, res)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := b.Manifest(results)
	if err := WriteManifest(b.store.ManifestPath(), m); err != nil {
		errs = append(errs, err)
	}
	return m, errors.Join(errs...)
}
