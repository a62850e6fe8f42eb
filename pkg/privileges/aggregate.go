package privileges

import (
	"sort"
	"time"
)

// Aggregate merges extracted records and endpoints into a Database.
//
// Records are deduplicated by (surface, name). The first record seen wins,
// except that a categorized record replaces an earlier Uncategorized one.
// Endpoint labels of duplicates are merged. The result is sorted by surface
// and then by name so repeated runs render identically.
func Aggregate(updated time.Time, records []Record, endpoints []Endpoint) *Database {
	byKey := make(map[string]int, len(records))
	var out []Record

	for _, r := range records {
		if r.Name == "" || !r.Surface.Valid() {
			continue
		}
		if r.Category == "" {
			r.Category = Uncategorized
		}
		idx, seen := byKey[r.Key()]
		if !seen {
			r.Endpoints = append([]string(nil), r.Endpoints...)
			byKey[r.Key()] = len(out)
			out = append(out, r)
			continue
		}
		existing := &out[idx]
		if existing.Category == Uncategorized && r.Category != Uncategorized {
			existing.Category = r.Category
		}
		existing.Endpoints = append(existing.Endpoints, r.Endpoints...)
	}

	for i := range out {
		out[i].Endpoints = uniqueSorted(out[i].Endpoints)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Surface != out[j].Surface {
			return surfaceRank(out[i].Surface) < surfaceRank(out[j].Surface)
		}
		return out[i].Name < out[j].Name
	})

	return &Database{
		Updated:    updated.UTC(),
		Privileges: out,
		Endpoints:  dedupEndpoints(endpoints),
	}
}

// Categories builds the category index for a database. A name present on
// both surfaces is listed once, under the category of its first record.
func Categories(d *Database) CategoryIndex {
	idx := CategoryIndex{}
	assigned := make(map[string]bool)
	for _, r := range d.Privileges {
		if assigned[r.Name] {
			continue
		}
		assigned[r.Name] = true
		idx[r.Category] = append(idx[r.Category], r.Name)
	}
	for cat := range idx {
		sort.Strings(idx[cat])
	}
	return idx
}

func dedupEndpoints(endpoints []Endpoint) []Endpoint {
	seen := make(map[string]bool, len(endpoints))
	out := make([]Endpoint, 0, len(endpoints))
	for _, e := range endpoints {
		if !e.Surface.Valid() || e.Path == "" || e.Operation == "" {
			continue
		}
		k := e.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Surface != b.Surface {
			return surfaceRank(a.Surface) < surfaceRank(b.Surface)
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Operation < b.Operation
	})
	return out
}

func surfaceRank(s Surface) int {
	for i, known := range Surfaces {
		if s == known {
			return i
		}
	}
	return len(Surfaces)
}

func uniqueSorted(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := set[s]; ok {
			continue
		}
		set[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
