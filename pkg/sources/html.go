package sources

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DocExtractor reads privilege tables out of a documentation page. HTML
// tables are tried first; pages that render client-side are handled by
// reading markdown tables from the JSON embedded in the page.
type DocExtractor struct {
	Surface privileges.Surface
	Spec    TableSpec
}

func (x *DocExtractor) Extract(doc []byte) (*Extraction, error) {
	var candidates []rawTable

	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && gjson.ValidBytes(trimmed) {
		candidates = embeddedTables(string(trimmed))
	} else {
		d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		candidates = x.filter(htmlTables(d))
		if len(candidates) == 0 {
			d.Find(`script#ssr-props, script#__NEXT_DATA__, script[type="application/json"]`).Each(func(_ int, s *goquery.Selection) {
				js := s.Contents().Text()
				if gjson.Valid(js) {
					candidates = append(candidates, embeddedTables(js)...)
				}
			})
		}
	}

	matched := x.filter(candidates)
	if len(matched) == 0 {
		return nil, ErrTableNotFound
	}

	out := &Extraction{}
	for _, t := range matched {
		if err := x.Spec.build(x.Surface, t, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (x *DocExtractor) filter(tables []rawTable) []rawTable {
	var out []rawTable
	for _, t := range tables {
		if x.Spec.matches(t.headers) {
			out = append(out, t)
		}
	}
	return out
}

func htmlTables(d *goquery.Document) []rawTable {
	var tables []rawTable
	d.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		// Rows of nested tables belong to those tables.
		rows := tbl.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			return tr.Closest("table").IsSelection(tbl)
		})

		headerIdx := -1
		rows.EachWithBreak(func(i int, tr *goquery.Selection) bool {
			if tr.ChildrenFiltered("th").Length() > 0 {
				headerIdx = i
				return false
			}
			return true
		})
		if headerIdx < 0 {
			return
		}

		t := rawTable{heading: precedingHeading(tbl.Nodes[0])}
		var headers []string
		rows.Eq(headerIdx).ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
			headers = append(headers, nodeText(c.Nodes[0]))
		})
		t.headers = normalizeHeaders(headers)

		rows.Slice(headerIdx+1, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := tr.ChildrenFiltered("th, td")
			if cells.Length() == 0 {
				return
			}
			r := rawRow{}
			cells.Each(func(_ int, c *goquery.Selection) {
				r.cells = append(r.cells, nodeText(c.Nodes[0]))
			})
			if cells.Length() == 1 {
				span, _ := cells.Attr("colspan")
				r.spanning = span != "" && span != "1"
			}
			t.rows = append(t.rows, r)
		})
		tables = append(tables, t)
	})
	return tables
}

var blockAtoms = map[atom.Atom]bool{
	atom.Li:  true,
	atom.P:   true,
	atom.Div: true,
	atom.Ul:  true,
	atom.Ol:  true,
}

// nodeText returns the text of n with line breaks at <br> and block elements.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Br {
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockAtoms[n.DataAtom] {
			b.WriteByte('\n')
		}
	}
	walk(n)
	return b.String()
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.H2, atom.H3, atom.H4:
		return true
	}
	return false
}

// lastHeading returns the last h2-h4 in document order within n.
func lastHeading(n *html.Node) *html.Node {
	if isHeading(n) {
		return n
	}
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if h := lastHeading(c); h != nil {
			return h
		}
	}
	return nil
}

// precedingHeading walks backwards from n to the nearest heading before it.
func precedingHeading(n *html.Node) string {
	for cur := n; cur != nil; cur = cur.Parent {
		for sib := cur.PrevSibling; sib != nil; sib = sib.PrevSibling {
			if h := lastHeading(sib); h != nil {
				return utils.Clean(nodeText(h))
			}
		}
	}
	return ""
}
