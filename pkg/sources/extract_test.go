package sources

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roleautomator/jamfroles/pkg/privileges"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func categoriesByName(recs []privileges.Record) map[string]string {
	out := map[string]string{}
	for _, r := range recs {
		if _, ok := out[r.Name]; !ok {
			out[r.Name] = r.Category
		}
	}
	return out
}

func TestExtractClassicHTML(t *testing.T) {
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
	got, err := x.Extract(readFixture(t, "classic.html"))
	require.NoError(t, err)

	assert.Len(t, got.Records, 7)
	for _, r := range got.Records {
		assert.Equal(t, privileges.ClassicAPI, r.Surface)
	}

	assert.Equal(t, map[string]string{
		"Read Computers":      "Computers",
		"Update Computers":    "Computers",
		"Read Mobile Devices": "Mobile Devices",
		"Jamf Admin Access":   "Mobile Devices",
		"Orphan Privilege":    "Mobile Devices",
		"Activation Code":     "Server Settings",
	}, categoriesByName(got.Records))

	require.Len(t, got.Endpoints, 5)
	assert.Equal(t, "GET", got.Endpoints[0].Operation, "operations are upper-cased")
	assert.Equal(t, []string{"Update Computers", "Read Computers"}, got.Endpoints[1].Privileges)
	assert.Empty(t, got.Endpoints[3].Privileges)
	assert.NotNil(t, got.Endpoints[3].Privileges, "empty privileges still render as a list")
	for _, e := range got.Endpoints {
		assert.Nil(t, e.DeprecationDate)
	}

	assert.Equal(t, []string{"GET /computers"}, got.Records[0].Endpoints)
}

func TestExtractEmbeddedMarkdown(t *testing.T) {
	x := &DocExtractor{Surface: privileges.JamfProAPI, Spec: JamfProTable}
	got, err := x.Extract(readFixture(t, "jamf-pro.html"))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"jamf.computer.read": "Computers",
		"Delete Computers":   "Computers",
		"Read Accounts":      "Users",
		"Read Users":         "Users",
	}, categoriesByName(got.Records))

	require.Len(t, got.Endpoints, 3)
	assert.Equal(t, "/v1/computers-inventory", got.Endpoints[0].Path)
	assert.Equal(t, "GET", got.Endpoints[0].Operation)
	assert.Nil(t, got.Endpoints[0].DeprecationDate)
	require.NotNil(t, got.Endpoints[1].DeprecationDate)
	assert.Equal(t, "2026-12-01", *got.Endpoints[1].DeprecationDate)
	assert.Nil(t, got.Endpoints[2].DeprecationDate)
}

func TestExtractJSONDocument(t *testing.T) {
	doc := []byte(`{"page":{"sections":[{"markdown":"### Buildings\n| Endpoint | Operation | Required Privileges |\n|---|---|---|\n| /buildings | GET | Read Buildings, Read Sites |\n| /odd | POST | Approve \\| Reject |\n"}]}}`)
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
	got, err := x.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Read Buildings":   "Buildings",
		"Read Sites":       "Sites",
		"Approve | Reject": "Buildings",
	}, categoriesByName(got.Records))
}

func TestExtractLayoutChanged(t *testing.T) {
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
	_, err := x.Extract(readFixture(t, "layout-changed.html"))
	assert.True(t, errors.Is(err, ErrTableNotFound), "got %v", err)
}

func TestExtractUnexpectedHeaders(t *testing.T) {
	spec := TableSpec{
		RequiredHeaders: []string{"Endpoint"},
		EndpointColumn:  "endpoint",
		OperationColumn: "verb",
		PrivilegeColumn: "privilege",
	}
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: spec}
	_, err := x.Extract(readFixture(t, "classic.html"))
	assert.True(t, errors.Is(err, ErrUnexpectedHeaders), "got %v", err)
}

func TestExtractCategoryColumn(t *testing.T) {
	doc := []byte(`<table>
<tr><th>Category</th><th>Endpoint</th><th>Operation</th><th>Required Privileges</th></tr>
<tr><td>inventory</td><td>/computers</td><td>GET</td><td>Read Computers</td></tr>
<tr><td></td><td>/misc</td><td>GET</td><td>Something Odd</td></tr>
</table>`)
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
	got, err := x.Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Read Computers": "Inventory",
		"Something Odd":  privileges.Uncategorized,
	}, categoriesByName(got.Records))
}

func TestExtractTruncatedEndpointRowIsNotAGroup(t *testing.T) {
	doc := []byte(`<h2>Docs</h2>
<table>
<tr><th>Endpoint</th><th>Operation</th><th>Required Privileges</th></tr>
<tr><td>/computers/id/{id}</td></tr>
<tr><td>/sites</td><td>GET</td><td>Read Sites</td></tr>
<tr><td>/x</td><td>GET</td><td>jamf.x.read</td></tr>
</table>`)
	x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
	got, err := x.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"Read Sites":  "Sites",
		"jamf.x.read": "Docs",
	}, categoriesByName(got.Records))
	assert.Len(t, got.Endpoints, 2, "the truncated row has no operation")
}

func TestExtractLooseMarkdownTables(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
	}{
		{"short separator", `### Buildings\n| Endpoint | Operation | Required Privileges |\n|--|:-:|--|\n| /buildings | GET | Read Buildings |\n`},
		{"no outer pipes", `### Buildings\nEndpoint | Operation | Required Privileges\n--- | --- | ---\n/buildings | GET | Read Buildings\n`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := []byte(`{"page":{"sections":[{"markdown":"` + tt.markdown + `"}]}}`)
			x := &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable}
			got, err := x.Extract(doc)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"Read Buildings": "Buildings"}, categoriesByName(got.Records))
			require.Len(t, got.Endpoints, 1)
			assert.Equal(t, "/buildings", got.Endpoints[0].Path)
		})
	}
}

func TestMarkdownRuleIsNotATable(t *testing.T) {
	assert.Empty(t, markdownTables("Intro paragraph\n---\nMore text"))
}
