package sources

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/privileges"
)

// rawTable is a layout-neutral view of one table found in a document.
type rawTable struct {
	headers []string
	rows    []rawRow
	heading string
}

type rawRow struct {
	// cells keep line breaks so multi-privilege cells can be split.
	cells []string
	// spanning is set for rows made of a single cell spanning the table.
	spanning bool
}

var (
	privilegeSplitRe = regexp.MustCompile(`(?i)[,;\n]|<br\s*/?>`)
	markdownEmphasis = strings.NewReplacer("**", "", "__", "", "`", "")
)

func (s TableSpec) matches(headers []string) bool {
	for _, req := range s.RequiredHeaders {
		req = strings.ToLower(req)
		found := false
		for _, h := range headers {
			if strings.Contains(h, req) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func indexContaining(headers []string, key string) int {
	if key == "" {
		return -1
	}
	for i, h := range headers {
		if strings.Contains(h, key) {
			return i
		}
	}
	return -1
}

func normalizeHeaders(in []string) []string {
	out := make([]string, len(in))
	for i, h := range in {
		out[i] = strings.ToLower(utils.Clean(markdownEmphasis.Replace(h)))
	}
	return out
}

// build converts a matched table into records and endpoints.
func (s TableSpec) build(surface privileges.Surface, t rawTable, out *Extraction) error {
	iEndpoint := indexContaining(t.headers, s.EndpointColumn)
	iOperation := indexContaining(t.headers, s.OperationColumn)
	iPriv := indexContaining(t.headers, s.PrivilegeColumn)
	iDepr := indexContaining(t.headers, s.DeprecationColumn)
	iCat := indexContaining(t.headers, s.CategoryColumn)

	if iEndpoint < 0 || iOperation < 0 || iPriv < 0 || (s.DeprecationColumn != "" && iDepr < 0) {
		return fmt.Errorf("%w: %v", ErrUnexpectedHeaders, t.headers)
	}
	// "privilege" may also match a category header such as "privilege category".
	if iCat == iPriv {
		iCat = -1
	}

	group := ""
	for _, r := range t.rows {
		if label, ok := groupLabel(r, len(t.headers)); ok {
			group = label
			continue
		}

		endpoint := cell(r.cells, iEndpoint)
		operation := strings.ToUpper(cell(r.cells, iOperation))
		names := splitPrivileges(rawCell(r.cells, iPriv))

		category := ""
		if iCat >= 0 {
			category = cell(r.cells, iCat)
		}
		if category == "" {
			category = group
		}

		hasEndpoint := endpoint != "" && operation != ""
		label := ""
		if hasEndpoint {
			label = operation + " " + endpoint
			ep := privileges.Endpoint{
				Surface:    surface,
				Path:       endpoint,
				Operation:  operation,
				Privileges: names,
			}
			if iDepr >= 0 {
				ep.DeprecationDate = deprecation(cell(r.cells, iDepr))
			}
			out.Endpoints = append(out.Endpoints, ep)
		}

		for _, name := range names {
			rec := privileges.Record{
				Name:     name,
				Surface:  surface,
				Category: InferCategory(name, category, t.heading),
			}
			if label != "" {
				rec.Endpoints = []string{label}
			}
			out.Records = append(out.Records, rec)
		}
	}
	return nil
}

// groupLabel detects grouping rows: a single spanning cell, or a row whose
// only non-empty cell is the first one.
func groupLabel(r rawRow, columns int) (string, bool) {
	if columns < 2 {
		return "", false
	}
	var label string
	if r.spanning || len(r.cells) == 1 {
		label = utils.Clean(markdownEmphasis.Replace(strings.Join(r.cells, " ")))
	} else {
		for i, c := range r.cells {
			if i > 0 && utils.Clean(c) != "" {
				return "", false
			}
		}
		label = cell(r.cells, 0)
	}
	return label, isGroupLabel(label)
}

// isGroupLabel rejects empty labels and lone endpoint paths, which are
// truncated rows rather than groups.
func isGroupLabel(label string) bool {
	return label != "" && !strings.HasPrefix(label, "/")
}

func rawCell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func cell(cells []string, i int) string {
	return utils.Clean(markdownEmphasis.Replace(rawCell(cells, i)))
}

func splitPrivileges(raw string) []string {
	names := []string{}
	for _, p := range privilegeSplitRe.Split(raw, -1) {
		p = utils.Clean(markdownEmphasis.Replace(p))
		p = strings.TrimLeft(p, "-*• ")
		if p == "" || isPlaceholder(p) {
			continue
		}
		names = append(names, p)
	}
	return names
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "n/a", "none", "-", "—":
		return true
	}
	return false
}

func deprecation(s string) *string {
	if s == "" || isPlaceholder(s) {
		return nil
	}
	return &s
}
