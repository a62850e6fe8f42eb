package sources

import (
	"strings"

	"github.com/roleautomator/jamfroles/internal/utils"
	"github.com/roleautomator/jamfroles/pkg/privileges"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// actionVerbs prefix most Jamf privilege names ("Read Computers").
var actionVerbs = []string{
	"Create", "Read", "Update", "Delete", "Send", "View", "Edit", "Enroll",
	"Renew", "Flush", "Assign", "Unassign", "Allow", "Dismiss",
}

var titleCaser = cases.Title(language.English)

// InferCategory picks the category for a privilege. In order: an explicit
// label from the table (category column or group row), the resource named by
// a verb-prefixed privilege, the heading above the table, and finally
// privileges.Uncategorized.
func InferCategory(name, explicit, heading string) string {
	if c := normalizeCategory(explicit); c != "" {
		return c
	}
	if c := normalizeCategory(resourceOf(name)); c != "" {
		return c
	}
	if c := normalizeCategory(heading); c != "" {
		return c
	}
	return privileges.Uncategorized
}

func resourceOf(name string) string {
	for _, verb := range actionVerbs {
		if rest, ok := strings.CutPrefix(name, verb+" "); ok {
			return rest
		}
	}
	return ""
}

func normalizeCategory(s string) string {
	s = utils.Clean(markdownEmphasis.Replace(s))
	s = strings.TrimRight(s, ":")
	if s == "" {
		return ""
	}
	if strings.ToLower(s) == s {
		s = titleCaser.String(s)
	}
	return s
}
