package sdmx

// Dataflow identifies one queryable statistical table.
type Dataflow struct {
	ID              string `json:"dataflow_id"`
	Version         string `json:"version"`
	Name            string `json:"name"`
	DataStructureID string `json:"datastructure_id"`
}

// DataflowNameLanguages is the ordered preference for dataflow display names.
var DataflowNameLanguages = []string{"en", "it"}

// ParseDataflows extracts every dataflow of a dataflow listing. A missing
// name falls back through DataflowNameLanguages and then NoNameAvailable; a
// missing structure reference yields NoRefID.
func ParseDataflows(data []byte) ([]Dataflow, error) {
	var msg xmlStructureMessage
	if err := decode("dataflows", data, &msg); err != nil {
		return nil, err
	}
	if msg.Structures.Dataflows == nil {
		return []Dataflow{}, nil
	}

	out := make([]Dataflow, 0, len(msg.Structures.Dataflows.Dataflows))
	for _, df := range msg.Structures.Dataflows.Dataflows {
		name, ok := df.Names.First(DataflowNameLanguages...)
		if !ok {
			name = NoNameAvailable
		}
		ref := NoRefID
		if df.Structure != nil && df.Structure.Ref != nil && df.Structure.Ref.ID != "" {
			ref = df.Structure.Ref.ID
		}
		out = append(out, Dataflow{
			ID:              df.ID,
			Version:         df.Version,
			Name:            name,
			DataStructureID: ref,
		})
	}
	return out, nil
}

// FilterDataflows keeps the dataflows whose id is in ids, preserving order.
func FilterDataflows(flows []Dataflow, ids []string) []Dataflow {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Dataflow, 0, len(ids))
	for _, df := range flows {
		if want[df.ID] {
			out = append(out, df)
		}
	}
	return out
}
