package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	return NewRegistry(map[string]map[string]*ResourceProfile{
		"nutrition": {
			"assessment": {
				ResourceName: "Assessment",
				Read: &ContentTypeDefinition{
					MemberSelection: IncludeOnly,
					Properties:      []string{"assessmentTitle"},
				},
			},
		},
	}, nil)
}

func TestRegistry_ResolveReadable(t *testing.T) {
	outcome, err := testRegistry().Resolve(context.Background(), ResolveRequest{
		ContentTypeHeader: "application/vnd.trellis.assessment.nutrition.readable+json",
		Method:            "GET",
		ResourceName:      "Assessment",
	})
	require.NoError(t, err)

	require.Equal(t, ProfileApplies, outcome.Kind)
	require.NotNil(t, outcome.Context)
	assert.Equal(t, "nutrition", outcome.Context.ProfileName)
	assert.Equal(t, Readable, outcome.Context.Usage)
}

func TestRegistry_ResolveWritableIsCaseInsensitive(t *testing.T) {
	outcome, err := testRegistry().Resolve(context.Background(), ResolveRequest{
		ContentTypeHeader: "Application/VND.Trellis.Assessment.Nutrition.Writable+JSON",
		Method:            "POST",
		ResourceName:      "Assessment",
	})
	require.NoError(t, err)

	require.Equal(t, ProfileApplies, outcome.Kind)
	assert.Equal(t, Writable, outcome.Context.Usage)
}

func TestRegistry_PlainContentTypeMeansNoProfile(t *testing.T) {
	outcome, err := testRegistry().Resolve(context.Background(), ResolveRequest{
		ContentTypeHeader: "application/json",
		Method:            "POST",
		ResourceName:      "Assessment",
	})
	require.NoError(t, err)
	assert.Equal(t, NoProfileApplies, outcome.Kind)
}

func TestRegistry_UnknownProfileFails(t *testing.T) {
	outcome, err := testRegistry().Resolve(context.Background(), ResolveRequest{
		ContentTypeHeader: "application/vnd.trellis.assessment.dietary.readable+json",
		Method:            "GET",
		ResourceName:      "Assessment",
	})
	require.NoError(t, err)

	assert.Equal(t, ResolutionFailure, outcome.Kind)
	assert.Equal(t, "The profile 'dietary' is not supported.", outcome.FailureMessage)
}

func TestRegistry_WrongResourceFails(t *testing.T) {
	outcome, err := testRegistry().Resolve(context.Background(), ResolveRequest{
		ContentTypeHeader: "application/vnd.trellis.school.nutrition.readable+json",
		Method:            "GET",
		ResourceName:      "School",
	})
	require.NoError(t, err)

	assert.Equal(t, ResolutionFailure, outcome.Kind)
	assert.Equal(t,
		"The profile 'nutrition' does not apply to the 'School' resource.",
		outcome.FailureMessage)
}
