package sources

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	mdHeadingRe   = regexp.MustCompile(`^#{2,4}\s+(.+?)\s*#*$`)
	mdSeparatorRe = regexp.MustCompile(`^\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?$`)
	mdHasTableRe  = regexp.MustCompile(`(?m)^\s*\|?\s*:?-+:?\s*\|`)
)

// embeddedTables collects markdown tables from every string value of a JSON
// document, in document order.
func embeddedTables(js string) []rawTable {
	var tables []rawTable
	var walk func(gjson.Result)
	walk = func(r gjson.Result) {
		switch {
		case r.IsObject(), r.IsArray():
			r.ForEach(func(_, v gjson.Result) bool {
				walk(v)
				return true
			})
		case r.Type == gjson.String:
			if mdHasTableRe.MatchString(r.Str) {
				tables = append(tables, markdownTables(r.Str)...)
			}
		}
	}
	walk(gjson.Parse(js))
	return tables
}

func markdownTables(md string) []rawTable {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	heading := ""
	var tables []rawTable

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
			heading = m[1]
			continue
		}
		if !isTableRow(line) || i+1 >= len(lines) || !isSeparator(strings.TrimSpace(lines[i+1])) {
			continue
		}

		t := rawTable{headers: normalizeHeaders(splitMarkdownRow(line)), heading: heading}
		j := i + 2
		for ; j < len(lines); j++ {
			row := strings.TrimSpace(lines[j])
			if !isTableRow(row) {
				break
			}
			t.rows = append(t.rows, rawRow{cells: splitMarkdownRow(row)})
		}
		tables = append(tables, t)
		i = j - 1
	}
	return tables
}

// isTableRow accepts rows with or without the outer pipes.
func isTableRow(line string) bool {
	return strings.Contains(line, "|")
}

// isSeparator requires a pipe so a lone "---" rule under a paragraph is not
// taken for a one-column table.
func isSeparator(line string) bool {
	return strings.Contains(line, "|") && mdSeparatorRe.MatchString(line)
}

func splitMarkdownRow(line string) []string {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	line = strings.TrimSuffix(line, "|")

	const pipe = "\x00"
	line = strings.ReplaceAll(line, `\|`, pipe)
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(strings.ReplaceAll(p, pipe, "|"))
	}
	return parts
}
