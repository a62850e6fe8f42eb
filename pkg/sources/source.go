package sources

import (
	"errors"

	"github.com/roleautomator/jamfroles/pkg/privileges"
)

const (
	ClassicURL = "https://developer.jamf.com/jamf-pro/docs/classic-api-minimum-required-privileges-and-endpoint-mapping"
	JamfProURL = "https://developer.jamf.com/jamf-pro/docs/privileges-and-deprecations"
)

var (
	// ErrTableNotFound means no table with the expected headers exists in the document.
	ErrTableNotFound = errors.New("privilege table not found (page layout changed)")
	// ErrUnexpectedHeaders means a table matched but a required column could not be located.
	ErrUnexpectedHeaders = errors.New("privilege table headers unexpected")
)

// Extraction holds everything pulled out of a single source document.
type Extraction struct {
	Records   []privileges.Record
	Endpoints []privileges.Endpoint
}

// Extractor turns a raw source document into privilege records. It is the only
// piece that knows about the documentation's layout.
type Extractor interface {
	Extract(doc []byte) (*Extraction, error)
}

// Source is one documentation page feeding a single API surface.
type Source struct {
	Name      string
	Surface   privileges.Surface
	URL       string
	Extractor Extractor
}

// TableSpec describes how to recognize a privilege table and locate its
// columns. Header matching is a case-insensitive substring match.
type TableSpec struct {
	RequiredHeaders   []string
	EndpointColumn    string
	OperationColumn   string
	PrivilegeColumn   string
	DeprecationColumn string
	CategoryColumn    string
}

var ClassicTable = TableSpec{
	RequiredHeaders: []string{"Endpoint", "Operation", "Required Privilege"},
	EndpointColumn:  "endpoint",
	OperationColumn: "operation",
	PrivilegeColumn: "required",
	CategoryColumn:  "category",
}

var JamfProTable = TableSpec{
	RequiredHeaders:   []string{"Endpoint", "Operation", "Privilege Requirements", "Deprecation Date"},
	EndpointColumn:    "endpoint",
	OperationColumn:   "operation",
	PrivilegeColumn:   "privilege",
	DeprecationColumn: "deprecation",
	CategoryColumn:    "category",
}

// Defaults returns the two documentation sources, optionally overriding their URLs.
func Defaults(classicURL, jamfProURL string) []Source {
	if classicURL == "" {
		classicURL = ClassicURL
	}
	if jamfProURL == "" {
		jamfProURL = JamfProURL
	}
	return []Source{
		{
			Name:      "classic",
			Surface:   privileges.ClassicAPI,
			URL:       classicURL,
			Extractor: &DocExtractor{Surface: privileges.ClassicAPI, Spec: ClassicTable},
		},
		{
			Name:      "jamf-pro",
			Surface:   privileges.JamfProAPI,
			URL:       jamfProURL,
			Extractor: &DocExtractor{Surface: privileges.JamfProAPI, Spec: JamfProTable},
		},
	}
}
