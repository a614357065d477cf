package weights

import (
	"sort"
	"time"

	"confusion-engine-be/internal/entity"
)

type Key struct {
	Heuristic   string
	ContentType entity.ContentType
}

// Table is an immutable weight snapshot. Writers publish a new Table; readers
// holding an old one keep seeing a consistent set.
type Table struct {
	version  uint64
	records  map[Key]entity.HeuristicWeight
	defaults map[string]float64
}

func newTable(defaults map[string]float64, contentTypes []entity.ContentType, now time.Time) *Table {
	t := &Table{version: 1, records: make(map[Key]entity.HeuristicWeight), defaults: defaults}
	for name, w := range defaults {
		for _, ct := range contentTypes {
			t.records[Key{Heuristic: name, ContentType: ct}] = entity.HeuristicWeight{
				HeuristicName: name,
				ContentType:   ct,
				Weight:        w,
				LastUpdated:   now,
			}
		}
	}
	return t
}

func (t *Table) Version() uint64 {
	return t.version
}

// WeightFor returns the current weight, or the default for pairs never seen.
func (t *Table) WeightFor(name string, contentType entity.ContentType) float64 {
	if rec, ok := t.records[Key{Heuristic: name, ContentType: contentType}]; ok {
		return rec.Weight
	}
	return t.defaults[name]
}

func (t *Table) Record(name string, contentType entity.ContentType) (entity.HeuristicWeight, bool) {
	rec, ok := t.records[Key{Heuristic: name, ContentType: contentType}]
	return rec, ok
}

// All lists records ordered by content type then heuristic name.
func (t *Table) All() []entity.HeuristicWeight {
	out := make([]entity.HeuristicWeight, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ContentType != out[j].ContentType {
			return out[i].ContentType < out[j].ContentType
		}
		return out[i].HeuristicName < out[j].HeuristicName
	})
	return out
}

// with returns a copy of t with one record replaced.
func (t *Table) with(rec entity.HeuristicWeight) *Table {
	next := &Table{
		version:  t.version + 1,
		records:  make(map[Key]entity.HeuristicWeight, len(t.records)+1),
		defaults: t.defaults,
	}
	for k, v := range t.records {
		next.records[k] = v
	}
	next.records[Key{Heuristic: rec.HeuristicName, ContentType: rec.ContentType}] = rec
	return next
}
