package sdmx

import (
	"context"
	"log/slog"
)

// Dimension describes one dimension of a data structure and the codelist
// enumerating its values. JSON keys follow the persisted catalog layout.
type Dimension struct {
	ID               string   `json:"dimension"`
	EnumerationRefID string   `json:"dimension_id"`
	Description      string   `json:"description"`
	Constraints      []string `json:"constraints,omitempty"`
}

// CodelistNamer resolves the English name of a codelist.
type CodelistNamer interface {
	CodelistName(ctx context.Context, ref string) (string, error)
}

// ParseDimensions extracts the dimensions of every data structure in data.
// Each enumeration reference costs one CodelistName call; a reference whose
// lookup fails is dropped and the others are kept.
func ParseDimensions(ctx context.Context, data []byte, namer CodelistNamer, logger *slog.Logger) ([]Dimension, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var msg xmlStructureMessage
	if err := decode("datastructure", data, &msg); err != nil {
		return nil, err
	}
	if msg.Structures.DataStructures == nil {
		return []Dimension{}, nil
	}

	var out []Dimension
	for _, ds := range msg.Structures.DataStructures.DataStructures {
		for _, dim := range ds.Components.DimensionList.Dimensions {
			for _, ref := range dim.enumerationRefs() {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				name, err := namer.CodelistName(ctx, ref.ID)
				if err != nil {
					logger.Debug("dimension dropped", "datastructure", ds.ID, "dimension", dim.ID, "codelist", ref.ID, "error", err)
					continue
				}
				out = append(out, Dimension{
					ID:               dim.ID,
					EnumerationRefID: ref.ID,
					Description:      name,
				})
			}
		}
	}
	if out == nil {
		out = []Dimension{}
	}
	return out, nil
}
