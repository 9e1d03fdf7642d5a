// Package snapshot holds the read-only data an assessment runs against:
// disasters, census blocks and infrastructure sites with their spatial
// indexes. A Snapshot is immutable once built; Store swaps whole snapshots.
package snapshot

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"

	"github.com/mr1hm/go-disaster-impact/internal/engineerr"
	"github.com/mr1hm/go-disaster-impact/internal/models"
	"github.com/mr1hm/go-disaster-impact/internal/spatialindex"
)

type Snapshot struct {
	builtAt time.Time

	disasters   map[string]*models.Disaster
	disasterIDs []string

	blocks     map[string]*models.CensusBlock
	blockIndex *spatialindex.Index

	sites     map[string]*models.InfrastructureSite
	siteIndex *spatialindex.Index
}

// Empty is a valid snapshot with no data.
func Empty() *Snapshot {
	s, _ := Build(nil, nil, nil, time.Time{})
	return s
}

// Build validates every record, recomputes derived geometry fields and
// indexes blocks and sites. The inputs are copied.
func Build(disasters []models.Disaster, blocks []models.CensusBlock, sites []models.InfrastructureSite, builtAt time.Time) (*Snapshot, error) {
	s := &Snapshot{
		builtAt:   builtAt,
		disasters: make(map[string]*models.Disaster, len(disasters)),
		blocks:    make(map[string]*models.CensusBlock, len(blocks)),
		sites:     make(map[string]*models.InfrastructureSite, len(sites)),
	}

	for i := range disasters {
		d := disasters[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if err := d.SetGeometry(d.Geometry); err != nil {
			return nil, fmt.Errorf("disaster %s: %w", d.ID, err)
		}
		if _, dup := s.disasters[d.ID]; dup {
			return nil, engineerr.InvalidArgument("snapshot", "duplicate disaster id %q", d.ID)
		}
		s.disasters[d.ID] = &d
		s.disasterIDs = append(s.disasterIDs, d.ID)
	}
	sort.Strings(s.disasterIDs)

	blockEntries := make([]spatialindex.Entry, 0, len(blocks))
	for i := range blocks {
		b := blocks[i]
		if err := b.SetGeometry(b.Geometry); err != nil {
			return nil, fmt.Errorf("census block %s: %w", b.ID, err)
		}
		if err := b.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.blocks[b.ID]; dup {
			return nil, engineerr.InvalidArgument("snapshot", "duplicate census block id %q", b.ID)
		}
		s.blocks[b.ID] = &b
		blockEntries = append(blockEntries, spatialindex.Entry{ID: b.ID, Bound: b.Geometry.Bound()})
	}

	siteEntries := make([]spatialindex.Entry, 0, len(sites))
	for i := range sites {
		site := sites[i]
		if err := site.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.sites[site.ID]; dup {
			return nil, engineerr.InvalidArgument("snapshot", "duplicate site id %q", site.ID)
		}
		s.sites[site.ID] = &site
		siteEntries = append(siteEntries, spatialindex.Entry{ID: site.ID, Bound: site.Location.Bound()})
	}

	var err error
	if s.blockIndex, err = spatialindex.Build(blockEntries); err != nil {
		return nil, fmt.Errorf("indexing census blocks: %w", err)
	}
	if s.siteIndex, err = spatialindex.Build(siteEntries); err != nil {
		return nil, fmt.Errorf("indexing infrastructure: %w", err)
	}
	return s, nil
}

func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

func (s *Snapshot) Disaster(id string) (*models.Disaster, bool) {
	d, ok := s.disasters[id]
	return d, ok
}

// Disasters returns every disaster ordered by id.
func (s *Snapshot) Disasters() []*models.Disaster {
	out := make([]*models.Disaster, len(s.disasterIDs))
	for i, id := range s.disasterIDs {
		out[i] = s.disasters[id]
	}
	return out
}

// BlocksInBound returns census blocks whose bounding boxes intersect b.
func (s *Snapshot) BlocksInBound(b orb.Bound) []*models.CensusBlock {
	ids := s.blockIndex.Query(b)
	out := make([]*models.CensusBlock, len(ids))
	for i, id := range ids {
		out[i] = s.blocks[id]
	}
	return out
}

// SitesInBound returns infrastructure sites located inside b.
func (s *Snapshot) SitesInBound(b orb.Bound) []*models.InfrastructureSite {
	ids := s.siteIndex.Query(b)
	out := make([]*models.InfrastructureSite, len(ids))
	for i, id := range ids {
		out[i] = s.sites[id]
	}
	return out
}

func (s *Snapshot) Site(id string) (*models.InfrastructureSite, bool) {
	site, ok := s.sites[id]
	return site, ok
}

type Counts struct {
	Disasters    int
	CensusBlocks int
	Sites        int
}

func (s *Snapshot) Counts() Counts {
	return Counts{Disasters: len(s.disasters), CensusBlocks: len(s.blocks), Sites: len(s.sites)}
}

// Store publishes snapshots by replacement. Readers holding an older
// snapshot keep using it until they finish.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore() *Store {
	st := &Store{}
	st.current.Store(Empty())
	return st
}

func (st *Store) Current() *Snapshot {
	return st.current.Load()
}

// Publish installs s and returns the snapshot it replaced.
func (st *Store) Publish(s *Snapshot) *Snapshot {
	if s == nil {
		return st.current.Load()
	}
	return st.current.Swap(s)
}
