package privileges

import (
	"strings"
	"time"
)

// Surface identifies which generation of the Jamf API a privilege belongs to.
type Surface string

const (
	ClassicAPI Surface = "ClassicAPI"
	JamfProAPI Surface = "JamfProAPI"
)

// Uncategorized is the bucket for privileges whose category could not be inferred.
const Uncategorized = "Uncategorized"

// Surfaces lists every known surface in output order.
var Surfaces = []Surface{ClassicAPI, JamfProAPI}

func (s Surface) Valid() bool {
	return s == ClassicAPI || s == JamfProAPI
}

// Record is a single named privilege on one API surface.
type Record struct {
	Name      string   `json:"name"`
	Surface   Surface  `json:"apiSurface"`
	Category  string   `json:"category"`
	Endpoints []string `json:"endpoints,omitempty"`
}

// Key returns the identity of a record within a database.
func (r Record) Key() string {
	return string(r.Surface) + "|" + r.Name
}

// Endpoint maps one documented API operation to the privileges it requires.
type Endpoint struct {
	Surface         Surface  `json:"apiSurface"`
	Path            string   `json:"endpoint"`
	Operation       string   `json:"operation"`
	Privileges      []string `json:"privileges"`
	DeprecationDate *string  `json:"deprecationDate"`
}

// Label is the "OPERATION /path" form attached to records.
func (e Endpoint) Label() string {
	return e.Operation + " " + e.Path
}

func (e Endpoint) key() string {
	dep := ""
	if e.DeprecationDate != nil {
		dep = *e.DeprecationDate
	}
	return string(e.Surface) + "|" + e.Path + "|" + e.Operation + "|" + dep + "|" + strings.Join(e.Privileges, ",")
}

// Database is the full, deduplicated result of one sync run.
type Database struct {
	Updated    time.Time
	Privileges []Record
	Endpoints  []Endpoint
}

// Filter returns a copy of the database holding only one surface.
func (d *Database) Filter(s Surface) *Database {
	out := &Database{Updated: d.Updated}
	for _, r := range d.Privileges {
		if r.Surface == s {
			out.Privileges = append(out.Privileges, r)
		}
	}
	for _, e := range d.Endpoints {
		if e.Surface == s {
			out.Endpoints = append(out.Endpoints, e)
		}
	}
	return out
}

// CategoryIndex maps a category to the sorted privilege names it holds.
type CategoryIndex map[string][]string
