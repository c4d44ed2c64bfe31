package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/hazyhaar/istat-census/pkg/itter"
	"github.com/hazyhaar/istat-census/pkg/sdmx"
)

// BuildConfig selects what the Builder materializes.
type BuildConfig struct {
	// UsefulDataflows are the dataflow ids kept in useful_istat_datasets.jsonl
	// and expanded into data structures and constraints.
	UsefulDataflows []string `yaml:"useful_dataflows"`
	// TerritoryFlow is the dataflow whose CL_ITTER107 constraints restrict
	// the territorial partitions.
	TerritoryFlow string `yaml:"territory_flow"`
	// Codelists are the dimension codelists of TerritoryFlow exported as
	// name/code files.
	Codelists []string `yaml:"codelists"`
	// XMLCodelists are saved verbatim under xml/.
	XMLCodelists []string `yaml:"xml_codelists"`
	// Concurrency bounds the codelist fetches of the constraints resolver.
	Concurrency int `yaml:"concurrency"`
}

// TerritoryCodelist enumerates the territorial dimension.
const TerritoryCodelist = "CL_ITTER107"

// DefaultBuildConfig returns the population census selection.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		UsefulDataflows: []string{"22_289"},
		TerritoryFlow:   "22_289",
		Codelists:       []string{"CL_SEXISTAT1", "CL_ETA1"},
		XMLCodelists:    []string{TerritoryCodelist},
		Concurrency:     1,
	}
}

// StepObserver receives the outcome of every build step.
type StepObserver interface {
	ObserveStep(step, outcome string, elapsed time.Duration)
}

// DimensionSet collects dimensions across dataflows, keeping the first
// dimension seen for each enumeration reference.
type DimensionSet struct {
	seen map[string]bool
	dims []sdmx.Dimension
}

// NewDimensionSet returns an empty set.
func NewDimensionSet() *DimensionSet {
	return &DimensionSet{seen: make(map[string]bool)}
}

// Add appends d unless its enumeration reference was already seen.
func (s *DimensionSet) Add(d sdmx.Dimension) bool {
	if s.seen[d.EnumerationRefID] {
		return false
	}
	s.seen[d.EnumerationRefID] = true
	s.dims = append(s.dims, d)
	return true
}

// Dimensions returns the collected dimensions in insertion order.
func (s *DimensionSet) Dimensions() []sdmx.Dimension {
	return append([]sdmx.Dimension{}, s.dims...)
}

// Builder materializes the catalog of a Store from the SDMX service.
type Builder struct {
	client   *sdmx.Client
	store    *Store
	cfg      BuildConfig
	logger   *slog.Logger
	observer StepObserver

	useful *DimensionSet
	files  map[string]int

	mu          sync.Mutex
	territories *sdmx.Codelist
}

// NewBuilder creates a Builder. observer may be nil.
func NewBuilder(client *sdmx.Client, store *Store, cfg BuildConfig, logger *slog.Logger, observer StepObserver) *Builder {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.TerritoryFlow == "" && len(cfg.UsefulDataflows) > 0 {
		cfg.TerritoryFlow = cfg.UsefulDataflows[0]
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		client:   client,
		store:    store,
		cfg:      cfg,
		logger:   logger.With("component", "builder"),
		observer: observer,
		useful:   NewDimensionSet(),
		files:    make(map[string]int),
	}
}

func (b *Builder) record(path string, n int) {
	b.mu.Lock()
	b.files[path] = n
	b.mu.Unlock()
}

// BuildDataflows fetches the dataflow listing and writes the full and the
// useful dataflow files.
func (b *Builder) BuildDataflows(ctx context.Context) (int, error) {
	body, err := b.client.Fetch(ctx, b.client.DataflowsURL())
	if err != nil {
		return 0, err
	}
	flows, err := sdmx.ParseDataflows(body)
	if err != nil {
		return 0, err
	}
	if len(flows) == 0 {
		return 0, fmt.Errorf("dataflow listing is empty")
	}
	if err := WriteJSONL(b.store.AllDataflowsPath(), flows); err != nil {
		return 0, err
	}
	useful := sdmx.FilterDataflows(flows, b.cfg.UsefulDataflows)
	if err := WriteJSONL(b.store.UsefulDataflowsPath(), useful); err != nil {
		return 0, err
	}
	b.record(AllDataflowsFile, len(flows))
	b.record(UsefulDataflowsFile, len(useful))
	b.logger.Info("dataflows saved", "total", len(flows), "useful", len(useful))
	return len(flows), nil
}

// BuildDatastructures resolves the dimensions of a useful dataflow, writes
// <flow>__datastructures.jsonl and merges them into the useful set.
func (b *Builder) BuildDatastructures(ctx context.Context, flowID string) ([]sdmx.Dimension, error) {
	df, err := b.store.Dataflow(flowID)
	if err != nil {
		return nil, err
	}
	dims, err := b.fetchDimensions(ctx, df)
	if err != nil {
		return nil, err
	}
	for _, d := range dims {
		b.useful.Add(d)
	}
	if len(dims) == 0 {
		b.logger.Warn("no dimensions resolved", "dataflow", flowID, "datastructure", df.DataStructureID)
		return dims, nil
	}
	if err := WriteJSONL(b.store.DatastructuresPath(flowID), dims); err != nil {
		return nil, err
	}
	b.record(flowID+"__datastructures.jsonl", len(dims))
	return dims, nil
}

func (b *Builder) fetchDimensions(ctx context.Context, df sdmx.Dataflow) ([]sdmx.Dimension, error) {
	if df.DataStructureID == sdmx.NoRefID {
		return nil, fmt.Errorf("dataflow %s has no data structure reference", df.ID)
	}
	body, err := b.client.Fetch(ctx, b.client.DataStructureURL(df.DataStructureID))
	if err != nil {
		return nil, err
	}
	return sdmx.ParseDimensions(ctx, body, b.client, b.logger)
}

// SaveUsefulDatastructures writes the deduplicated dimensions of every
// useful dataflow built so far.
func (b *Builder) SaveUsefulDatastructures() (int, error) {
	dims := b.useful.Dimensions()
	if err := WriteJSONL(b.store.UsefulDatastructuresPath(), dims); err != nil {
		return 0, err
	}
	b.record(UsefulDatastructuresFile, len(dims))
	return len(dims), nil
}

// territoryCodelist fetches CL_ITTER107 once per build.
func (b *Builder) territoryCodelist(ctx context.Context) (*sdmx.Codelist, error) {
	b.mu.Lock()
	cached := b.territories
	b.mu.Unlock()
	if cached != nil {
		return cached, nil
	}
	cl, _, err := b.client.FetchCodelist(ctx, TerritoryCodelist)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.territories = cl
	b.mu.Unlock()
	return cl, nil
}

// ExtractTerritories writes the partition file of t, restricted to the
// CL_ITTER107 constraints of flowID. Municipalities are also written as
// per-letter shards. Constraints must have been resolved beforehand.
func (b *Builder) ExtractTerritories(ctx context.Context, flowID string, t itter.Type) (int, error) {
	constraints, err := b.store.Constraints(flowID, TerritoryCodelist)
	if err != nil {
		return 0, fmt.Errorf("extract %s: resolve constraints first: %w", t.Name(), err)
	}
	cl, err := b.territoryCodelist(ctx)
	if err != nil {
		return 0, err
	}
	entries := ExtractTerritories(t, cl, constraints)
	if err := WriteJSONL(b.store.TerritoryPath(t), entries); err != nil {
		return 0, err
	}
	b.record(TerritoryDir+"/"+t.FileName(), len(entries))

	if t == itter.Municipalities {
		shards := ShardByLetter(entries)
		letters := make([]string, 0, len(shards))
		for l := range shards {
			letters = append(letters, l)
		}
		sort.Strings(letters)
		for _, l := range letters {
			if err := WriteJSONL(b.store.ShardPath(l), shards[l]); err != nil {
				return 0, err
			}
		}
		b.logger.Debug("municipality shards saved", "shards", len(letters))
	}
	b.logger.Info("territories saved", "type", t.Name(), "count", len(entries))
	return len(entries), nil
}

// ExportCodelist writes the name/code file of one dimension codelist of
// flowID, restricted to its constraints.
func (b *Builder) ExportCodelist(ctx context.Context, flowID, codelistID string) (int, error) {
	constraints, err := b.store.Constraints(flowID, codelistID)
	if err != nil {
		return 0, err
	}
	cl, _, err := b.client.FetchCodelist(ctx, codelistID)
	if err != nil {
		return 0, err
	}
	entries := ExtractCodelist(cl, constraints)
	if err := WriteJSONL(b.store.CodelistPath(flowID, codelistID), entries); err != nil {
		return 0, err
	}
	b.record(flowID+"_"+codelistID+"__codelist.jsonl", len(entries))
	return len(entries), nil
}

// SaveCodelistXML stores the raw SDMX-ML of a codelist under xml/.
func (b *Builder) SaveCodelistXML(ctx context.Context, codelistID string) (int, error) {
	body, err := b.client.Fetch(ctx, b.client.CodelistURL(codelistID))
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(b.store.XMLPath(codelistID), body); err != nil {
		return 0, err
	}
	b.record(XMLDir+"/"+codelistID+".xml", len(body))
	return len(body), nil
}

// Manifest describes the files written so far.
func (b *Builder) Manifest(results []StepResult) *Manifest {
	cfg := b.client.Config()
	b.mu.Lock()
	files := make(map[string]int, len(b.files))
	for k, v := range b.files {
		files[k] = v
	}
	b.mu.Unlock()
	return &Manifest{
		BuiltAt:         time.Now().UTC(),
		BaseURL:         cfg.BaseURL,
		Agency:          cfg.Agency,
		UsefulDataflows: b.cfg.UsefulDataflows,
		Files:           files,
		Steps:           results,
	}
}
