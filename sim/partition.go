package sim

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Backend is the kind of hardware a cell group runs on.
type Backend string

const (
	BackendMulticore Backend = "multicore"
	BackendGPU       Backend = "gpu"
)

// PartitionHint tunes how PartitionLoadBalance groups cells of one kind.
type PartitionHint struct {
	CPUGroupSize int  `yaml:"cpu_group_size"`
	GPUGroupSize int  `yaml:"gpu_group_size"`
	PreferGPU    bool `yaml:"prefer_gpu"`
}

// DefaultPartitionHint puts every cell in its own CPU group, or all cells of a
// kind in one GPU group when a GPU is available.
func DefaultPartitionHint() PartitionHint {
	return PartitionHint{
		CPUGroupSize: 1,
		GPUGroupSize: math.MaxInt,
		PreferGPU:    true,
	}
}

// GroupDescription is a set of cells of one kind simulated together.
type GroupDescription struct {
	Kind    CellKind `yaml:"kind"`
	GIDs    []int    `yaml:"gids,flow"`
	Backend Backend  `yaml:"backend"`
}

// DomainDecomposition assigns the cells of a recipe to groups on this domain.
type DomainDecomposition struct {
	NumDomains     int                `yaml:"num_domains"`
	DomainID       int                `yaml:"domain_id"`
	NumLocalCells  int                `yaml:"num_local_cells"`
	NumGlobalCells int                `yaml:"num_global_cells"`
	Groups         []GroupDescription `yaml:"groups"`
}

// PartitionLoadBalance groups the cells of r by kind, in increasing gid order,
// and splits each kind into groups sized by its hint. Cells whose kind has no
// hint use DefaultPartitionHint.
func PartitionLoadBalance(r Recipe, ectx ExecutionContext, hints map[CellKind]PartitionHint) (*DomainDecomposition, error) {
	if err := ectx.Validate(); err != nil {
		return nil, err
	}
	n := r.NumCells()
	if n < 0 {
		return nil, fmt.Errorf("%w: negative cell count %d", ErrInvalidRecipe, n)
	}

	byKind := make(map[CellKind][]int)
	for gid := 0; gid < n; gid++ {
		kind := r.CellKind(gid)
		byKind[kind] = append(byKind[kind], gid)
	}
	kinds := make([]CellKind, 0, len(byKind))
	for kind := range byKind {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	d := &DomainDecomposition{
		NumDomains:     ectx.NumRanks(),
		DomainID:       0,
		NumLocalCells:  n,
		NumGlobalCells: n,
	}
	for _, kind := range kinds {
		hint, ok := hints[kind]
		if !ok {
			hint = DefaultPartitionHint()
		}
		backend, size := BackendMulticore, hint.CPUGroupSize
		if hint.PreferGPU && ectx.HasGPU() && kind.SupportsGPU() {
			backend, size = BackendGPU, hint.GPUGroupSize
		}
		if size < 1 {
			return nil, fmt.Errorf("%s group size for %s cells must be at least 1, got %d", backend, kind, size)
		}
		gids := byKind[kind]
		for lo := 0; lo < len(gids); lo += size {
			hi := lo + min(size, len(gids)-lo)
			d.Groups = append(d.Groups, GroupDescription{
				Kind:    kind,
				GIDs:    slices.Clone(gids[lo:hi]),
				Backend: backend,
			})
		}
		logrus.Debugf("partition: %d %s cells on %s in groups of up to %d", len(gids), kind, backend, size)
	}
	return d, nil
}

// GIDDomain returns the domain that owns gid, or -1 when gid is not a cell of
// the decomposed recipe.
func (d *DomainDecomposition) GIDDomain(gid int) int {
	if gid < 0 || gid >= d.NumGlobalCells {
		return -1
	}
	return d.DomainID
}

func (d *DomainDecomposition) String() string {
	return fmt.Sprintf("<domain_decomposition: domain id %d, num_domains %d, num_local_cells %d, num_global_cells %d, groups %d>",
		d.DomainID, d.NumDomains, d.NumLocalCells, d.NumGlobalCells, len(d.Groups))
}

// WriteTable renders one row per cell group.
func (d *DomainDecomposition) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Group", "Kind", "Backend", "Cells", "GIDs"})
	table.SetAutoWrapText(false)
	for i, g := range d.Groups {
		table.Append([]string{
			strconv.Itoa(i),
			string(g.Kind),
			string(g.Backend),
			strconv.Itoa(len(g.GIDs)),
			gidRange(g.GIDs),
		})
	}
	table.Render()
}

// WriteYAML encodes the decomposition as YAML.
func (d *DomainDecomposition) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding domain decomposition: %w", err)
	}
	return enc.Close()
}

// gidRange formats sorted gids compactly, e.g. "0-3" or "4".
func gidRange(gids []int) string {
	switch len(gids) {
	case 0:
		return ""
	case 1:
		return strconv.Itoa(gids[0])
	}
	first, last := gids[0], gids[len(gids)-1]
	if last-first+1 == len(gids) {
		return fmt.Sprintf("%d-%d", first, last)
	}
	return fmt.Sprintf("%d..%d (%d cells)", first, last, len(gids))
}
