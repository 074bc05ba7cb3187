// Package profile implements content-negotiation profiles: named views
// that restrict which fields and collection items of a resource are
// readable or writable. One filtering algorithm serves both directions.
package profile

// ContentTypeUsage is the direction a profile content type applies to.
type ContentTypeUsage string

const (
	// Readable marks the response-side content type of a profile.
	Readable ContentTypeUsage = "Readable"
	// Writable marks the request-side content type of a profile.
	Writable ContentTypeUsage = "Writable"
)

// MemberSelection controls how a rule's property list is interpreted.
type MemberSelection string

const (
	// IncludeAll keeps every property.
	IncludeAll MemberSelection = "IncludeAll"
	// IncludeOnly keeps only listed properties (plus identity fields).
	IncludeOnly MemberSelection = "IncludeOnly"
	// ExcludeOnly removes only listed properties.
	ExcludeOnly MemberSelection = "ExcludeOnly"
)

// ItemFilter prunes collection elements by the value of one property.
type ItemFilter struct {
	// PropertyName is the element property the filter inspects.
	PropertyName string

	// Mode IncludeOnly keeps elements whose value is in Values;
	// ExcludeOnly removes them.
	Mode MemberSelection

	// Values is the allowed (or disallowed) value set.
	Values []string
}

// ObjectRule filters a nested object property.
type ObjectRule struct {
	MemberSelection MemberSelection
	Properties      []string
}

// CollectionRule filters a nested collection property: optionally pruning
// whole elements via ItemFilter, then filtering each element's properties.
type CollectionRule struct {
	MemberSelection MemberSelection
	Properties      []string
	ItemFilter      *ItemFilter
}

// ContentTypeDefinition is one direction's filtering rules for a resource.
type ContentTypeDefinition struct {
	MemberSelection MemberSelection
	Properties      []string
	ObjectRules     map[string]ObjectRule
	CollectionRules map[string]CollectionRule
}

// ResourceProfile carries a resource's independent read and write
// definitions. Either side may be nil (e.g. a write-only profile).
type ResourceProfile struct {
	ResourceName string
	Read         *ContentTypeDefinition
	Write        *ContentTypeDefinition
}

// Context is the resolved content-negotiation outcome attached to a
// request envelope.
type Context struct {
	ProfileName string
	Usage       ContentTypeUsage
	Profile     *ResourceProfile
}

// DefinitionFor returns the content-type definition for a direction, or
// nil when the profile does not define that side.
func (c *Context) DefinitionFor(usage ContentTypeUsage) *ContentTypeDefinition {
	if c == nil || c.Profile == nil {
		return nil
	}
	if usage == Writable {
		return c.Profile.Write
	}
	return c.Profile.Read
}

func (m MemberSelection) includes(name string, listed bool) bool {
	switch m {
	case IncludeOnly:
		return listed
	case ExcludeOnly:
		return !listed
	default:
		return true
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
