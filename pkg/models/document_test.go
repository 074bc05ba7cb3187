package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edforge/trellis/pkg/jsonpath"
)

func TestDocumentIdentity_String(t *testing.T) {
	identity := DocumentIdentity{
		{Path: jsonpath.MustParse("$.assessmentIdentifier"), Value: "AI-1"},
		{Path: jsonpath.MustParse("$.namespace"), Value: "uri://ed-fi.org"},
	}

	assert.Equal(t,
		"$.assessmentIdentifier=AI-1#$.namespace=uri://ed-fi.org",
		identity.String())
}

func TestDocumentSecurityElements_Empty(t *testing.T) {
	var elements DocumentSecurityElements
	assert.Empty(t, elements.Namespaces)
	assert.Empty(t, elements.EducationOrganizations)
}
