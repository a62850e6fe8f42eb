package output

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/roleautomator/jamfroles/pkg/privileges"
)

const (
	SchemaVersion = "1.0.0"

	FullFile       = "jamf-roles.json"
	ClassicFile    = "classic-api-roles.json"
	JamfProFile    = "jamf-pro-api-roles.json"
	CategoriesFile = "privilege-categories.json"
)

// Files lists every published file in write order.
var Files = []string{FullFile, ClassicFile, JamfProFile, CategoriesFile}

// Metadata describes where the data came from.
type Metadata struct {
	Description       string   `json:"description"`
	Source            string   `json:"source"`
	DocumentationURLs []string `json:"documentation_urls"`
}

// RoleDocument is the shape shared by the full and per-surface files.
type RoleDocument struct {
	Version    string                `json:"version"`
	Updated    string                `json:"updated"`
	Metadata   Metadata              `json:"metadata"`
	Privileges []privileges.Record   `json:"privileges"`
	Endpoints  []privileges.Endpoint `json:"endpoints"`
}

var descriptions = map[privileges.Surface]string{
	privileges.ClassicAPI: "Classic API (XML-based) endpoints and required privileges",
	privileges.JamfProAPI: "Jamf Pro API (REST-based) endpoints and required privileges",
}

// Render encodes the four documents for db, stamped with updated.
func Render(db *privileges.Database, updated time.Time, docURLs []string) (map[string][]byte, error) {
	stamp := updated.UTC().Format(time.RFC3339)
	urls := append([]string{}, docURLs...)

	doc := func(d *privileges.Database, description string) RoleDocument {
		out := RoleDocument{
			Version: SchemaVersion,
			Updated: stamp,
			Metadata: Metadata{
				Description:       description,
				Source:            "Jamf Developer Documentation",
				DocumentationURLs: urls,
			},
			Privileges: d.Privileges,
			Endpoints:  d.Endpoints,
		}
		if out.Privileges == nil {
			out.Privileges = []privileges.Record{}
		}
		if out.Endpoints == nil {
			out.Endpoints = []privileges.Endpoint{}
		}
		return out
	}

	files := map[string]interface{}{
		FullFile:       doc(db, "Jamf Pro API Role and Privilege Mappings"),
		ClassicFile:    doc(db.Filter(privileges.ClassicAPI), descriptions[privileges.ClassicAPI]),
		JamfProFile:    doc(db.Filter(privileges.JamfProAPI), descriptions[privileges.JamfProAPI]),
		CategoriesFile: privileges.Categories(db),
	}

	out := make(map[string][]byte, len(files))
	for name, v := range files {
		b, err := encode(v)
		if err != nil {
			return nil, err
		}
		out[name] = b
	}
	return out, nil
}

func encode(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
