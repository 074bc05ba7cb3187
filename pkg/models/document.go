// Package models holds the request-scoped document model shared across the
// pipeline and the authorization components: document identity and the
// security elements extracted from a parsed body.
package models

import (
	"strings"

	"github.com/edforge/trellis/pkg/jsonpath"
)

// IdentityElement is one (path, value) pair of a document's identity.
type IdentityElement struct {
	Path  jsonpath.Path
	Value string
}

// DocumentIdentity is the ordered identity of a document, derived from the
// resource's configured identity paths. Concatenated in order, the values
// uniquely identify a document of its type.
type DocumentIdentity []IdentityElement

// String renders the identity for logs and comparisons.
func (d DocumentIdentity) String() string {
	parts := make([]string, 0, len(d))
	for _, e := range d {
		parts = append(parts, e.Path.String()+"="+e.Value)
	}
	return strings.Join(parts, "#")
}

// SuperclassIdentity records the identity a subclass document carries in
// its superclass's terms (e.g. a School as an EducationOrganization).
type SuperclassIdentity struct {
	ResourceName string
	Identity     DocumentIdentity
}

// EducationOrganizationElement pairs an education-organization resource
// name with one extracted numeric id.
type EducationOrganizationElement struct {
	ResourceName string
	ID           int64
}

// DocumentSecurityElements holds the security-relevant values extracted
// from a document. Categories without configured paths stay empty; absence
// is never an error.
type DocumentSecurityElements struct {
	Namespaces             []string
	EducationOrganizations []EducationOrganizationElement
	StudentUniqueIDs       []string
	ContactUniqueIDs       []string
	StaffUniqueIDs         []string
}
