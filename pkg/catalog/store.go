package catalog

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hazyhaar/istat-census/pkg/itter"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// File and directory names of the catalog layout.
const (
	AllDataflowsFile         = "all_istat_datasets.jsonl"
	UsefulDataflowsFile      = "useful_istat_datasets.jsonl"
	UsefulDatastructuresFile = "useful_datastructures.jsonl"
	ManifestFile             = "manifest.yaml"
	TerritoryDir             = "ITTER107"
	XMLDir                   = "xml"
)

// ErrNotFound is returned when a dataflow or dimension is absent from the catalog.
var ErrNotFound = errors.New("not found")

// Store resolves and reads the files of a catalog directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the catalog root.
func (s *Store) Dir() string { return s.dir }

func (s *Store) AllDataflowsPath() string    { return filepath.Join(s.dir, AllDataflowsFile) }
func (s *Store) UsefulDataflowsPath() string { return filepath.Join(s.dir, UsefulDataflowsFile) }
func (s *Store) UsefulDatastructuresPath() string {
	return filepath.Join(s.dir, UsefulDatastructuresFile)
}
func (s *Store) ManifestPath() string { return filepath.Join(s.dir, ManifestFile) }

// DatastructuresPath is the dimension list of a dataflow.
func (s *Store) DatastructuresPath(flowID string) string {
	return filepath.Join(s.dir, flowID+"__datastructures.jsonl")
}

// ConstraintsPath is the dimension list of a dataflow extended with constraints.
func (s *Store) ConstraintsPath(flowID string) string {
	return filepath.Join(s.dir, flowID+"__constraints.jsonl")
}

// CodelistPath is the name/code export of one dimension codelist of a dataflow.
func (s *Store) CodelistPath(flowID, codelistID string) string {
	return filepath.Join(s.dir, flowID+"_"+codelistID+"__codelist.jsonl")
}

// XMLPath is the raw SDMX-ML copy of a codelist.
func (s *Store) XMLPath(codelistID string) string {
	return filepath.Join(s.dir, XMLDir, codelistID+".xml")
}

// TerritoryPath is the partition file of t.
func (s *Store) TerritoryPath(t itter.Type) string {
	return filepath.Join(s.dir, TerritoryDir, t.FileName())
}

// ShardPath is the municipality shard for letter.
func (s *Store) ShardPath(letter string) string {
	return filepath.Join(s.dir, TerritoryDir, itter.ShardFileName(letter))
}

// Dataflows reads the full dataflow listing, or only the useful ones.
func (s *Store) Dataflows(usefulOnly bool) ([]sdmx.Dataflow, error) {
	path := s.AllDataflowsPath()
	if usefulOnly {
		path = s.UsefulDataflowsPath()
	}
	return ReadJSONL[sdmx.Dataflow](path)
}

// Dataflow returns the useful dataflow with the given id. An id without an
// exact match is retried with only its digits and underscores, so decorated
// forms such as "dataflow '22_289'." resolve.
func (s *Store) Dataflow(id string) (sdmx.Dataflow, error) {
	flows, err := s.Dataflows(true)
	if err != nil {
		return sdmx.Dataflow{}, err
	}
	candidates := []string{id}
	if clean, ok := CleanDataflowID(id); ok && clean != id {
		candidates = append(candidates, clean)
	}
	for _, want := range candidates {
		for _, df := range flows {
			if df.ID == want {
				return df, nil
			}
		}
	}
	return sdmx.Dataflow{}, fmt.Errorf("dataflow %s: %w", id, ErrNotFound)
}

// Version returns the version of the useful dataflow id.
func (s *Store) Version(id string) (string, error) {
	df, err := s.Dataflow(id)
	if err != nil {
		return "", err
	}
	return df.Version, nil
}

// Dimensions reads the persisted dimension list of flowID.
func (s *Store) Dimensions(flowID string) ([]sdmx.Dimension, error) {
	return ReadJSONL[sdmx.Dimension](s.DatastructuresPath(flowID))
}

// Constraints returns the constraints recorded for the dimension enumerated
// by codelistID in the constraints file of flowID.
func (s *Store) Constraints(flowID, codelistID string) ([]string, error) {
	dims, err := ReadJSONL[sdmx.Dimension](s.ConstraintsPath(flowID))
	if err != nil {
		return nil, fmt.Errorf("constraints of %s: %w", flowID, err)
	}
	for _, d := range dims {
		if d.EnumerationRefID == codelistID {
			return d.Constraints, nil
		}
	}
	return nil, fmt.Errorf("constraints of %s/%s: %w", flowID, codelistID, ErrNotFound)
}

// Territories reads the partition file of t.
func (s *Store) Territories(t itter.Type) ([]Entry, error) {
	return ReadJSONL[Entry](s.TerritoryPath(t))
}

// Shard reads the municipality shard for letter.
func (s *Store) Shard(letter string) ([]Entry, error) {
	return ReadJSONL[Entry](s.ShardPath(letter))
}
