package apischema

import (
	"strings"

	"github.com/edforge/trellis/pkg/jsonpath"
)

// Builder assembles an immutable Document. The loader uses it when reading
// schema files, and tests use it to construct fixture schemas directly.
// Methods panic on structural misuse (resource methods outside a project),
// which is a programming error rather than input error.
type Builder struct {
	reloadID string
	projects map[string]*ProjectSchema

	project  *ProjectSchema
	resource *ResourceSchema
}

// NewBuilder returns an empty schema document builder.
func NewBuilder() *Builder {
	return &Builder{projects: make(map[string]*ProjectSchema)}
}

// WithReloadID sets the opaque reload identifier for the built document.
func (b *Builder) WithReloadID(id string) *Builder {
	b.reloadID = id
	return b
}

// StartProject opens a project scope.
func (b *Builder) StartProject(projectName, endpointName, version string) *Builder {
	if b.project != nil {
		panic("apischema: StartProject inside open project")
	}
	b.project = &ProjectSchema{
		ProjectName:  projectName,
		EndpointName: endpointName,
		Version:      version,
		resources:    make(map[string]*ResourceSchema),
	}
	return b
}

// EndProject closes the current project scope.
func (b *Builder) EndProject() *Builder {
	if b.project == nil || b.resource != nil {
		panic("apischema: EndProject without open project")
	}
	b.projects[strings.ToLower(b.project.EndpointName)] = b.project
	b.project = nil
	return b
}

// StartResource opens a resource scope within the current project.
func (b *Builder) StartResource(resourceName, endpointName string) *Builder {
	if b.project == nil || b.resource != nil {
		panic("apischema: StartResource outside project scope")
	}
	b.resource = &ResourceSchema{
		ResourceName: resourceName,
		EndpointName: endpointName,
		QueryFields:  make(map[string]QueryField),
	}
	return b
}

// EndResource closes the current resource scope.
func (b *Builder) EndResource() *Builder {
	if b.resource == nil {
		panic("apischema: EndResource without open resource")
	}
	b.project.resources[strings.ToLower(b.resource.EndpointName)] = b.resource
	b.resource = nil
	return b
}

func (b *Builder) mustResource() *ResourceSchema {
	if b.resource == nil {
		panic("apischema: resource method outside resource scope")
	}
	return b.resource
}

// AsDescriptor marks the current resource as a descriptor.
func (b *Builder) AsDescriptor() *Builder {
	b.mustResource().IsDescriptor = true
	return b
}

// WithInsertSchema sets the JSON-Schema tree used for POST validation.
func (b *Builder) WithInsertSchema(schema map[string]any) *Builder {
	b.mustResource().InsertSchema = schema
	return b
}

// WithUpdateSchema sets the JSON-Schema tree used for PUT validation.
func (b *Builder) WithUpdateSchema(schema map[string]any) *Builder {
	b.mustResource().UpdateSchema = schema
	return b
}

// WithIdentityPaths sets the ordered identity paths.
func (b *Builder) WithIdentityPaths(paths ...string) *Builder {
	b.mustResource().IdentityPaths = parsePaths(paths)
	return b
}

// WithBooleanPaths sets paths coerced from string to boolean.
func (b *Builder) WithBooleanPaths(paths ...string) *Builder {
	b.mustResource().BooleanPaths = parsePaths(paths)
	return b
}

// WithNumericPaths sets paths coerced from string to number.
func (b *Builder) WithNumericPaths(paths ...string) *Builder {
	b.mustResource().NumericPaths = parsePaths(paths)
	return b
}

// WithDatePaths sets date-only paths normalized to yyyy-MM-dd.
func (b *Builder) WithDatePaths(paths ...string) *Builder {
	b.mustResource().DatePaths = parsePaths(paths)
	return b
}

// WithDateTimePaths sets date-time paths normalized to UTC ISO-8601.
func (b *Builder) WithDateTimePaths(paths ...string) *Builder {
	b.mustResource().DateTimePaths = parsePaths(paths)
	return b
}

// WithDecimalRule appends a decimal precision/scale rule.
func (b *Builder) WithDecimalRule(path string, totalDigits, decimalPlaces int) *Builder {
	r := b.mustResource()
	r.DecimalRules = append(r.DecimalRules, DecimalRule{
		Path:          jsonpath.MustParse(path),
		TotalDigits:   totalDigits,
		DecimalPlaces: decimalPlaces,
	})
	return b
}

// WithEqualityConstraint appends a constraint requiring all values at the
// given paths to match.
func (b *Builder) WithEqualityConstraint(paths ...string) *Builder {
	r := b.mustResource()
	r.EqualityConstraints = append(r.EqualityConstraints, EqualityConstraint{
		Paths: parsePaths(paths),
	})
	return b
}

// WithArrayUniquenessConstraint appends a uniqueness constraint over the
// array at basePath, identified per element by the relative paths.
func (b *Builder) WithArrayUniquenessConstraint(basePath string, paths ...string) *Builder {
	r := b.mustResource()
	r.ArrayUniquenessConstraints = append(r.ArrayUniquenessConstraints, ArrayUniquenessConstraint{
		BasePath: jsonpath.MustParse(basePath),
		Paths:    parsePaths(paths),
	})
	return b
}

// WithQueryField registers a query-parameter mapping.
func (b *Builder) WithQueryField(name, fieldType string, paths ...string) *Builder {
	r := b.mustResource()
	r.QueryFields[strings.ToLower(name)] = QueryField{
		Name:  name,
		Type:  fieldType,
		Paths: parsePaths(paths),
	}
	return b
}

// WithNamespaceSecurityPaths sets the namespace security-element paths.
func (b *Builder) WithNamespaceSecurityPaths(paths ...string) *Builder {
	b.mustResource().SecurityElements.Namespace = parsePaths(paths)
	return b
}

// WithEducationOrganizationSecurityPath appends an education-organization
// security-element path.
func (b *Builder) WithEducationOrganizationSecurityPath(resourceName, path string) *Builder {
	r := b.mustResource()
	r.SecurityElements.EducationOrganization = append(
		r.SecurityElements.EducationOrganization,
		EducationOrganizationPath{ResourceName: resourceName, Path: jsonpath.MustParse(path)},
	)
	return b
}

// WithStudentSecurityPaths sets the student unique-id paths.
func (b *Builder) WithStudentSecurityPaths(paths ...string) *Builder {
	b.mustResource().SecurityElements.Student = parsePaths(paths)
	return b
}

// WithContactSecurityPaths sets the contact unique-id paths.
func (b *Builder) WithContactSecurityPaths(paths ...string) *Builder {
	b.mustResource().SecurityElements.Contact = parsePaths(paths)
	return b
}

// WithStaffSecurityPaths sets the staff unique-id paths.
func (b *Builder) WithStaffSecurityPaths(paths ...string) *Builder {
	b.mustResource().SecurityElements.Staff = parsePaths(paths)
	return b
}

// WithSuperclass links the current resource to its superclass identity.
func (b *Builder) WithSuperclass(resourceName, identityPath, subclassIdentityPath string) *Builder {
	b.mustResource().Superclass = &SuperclassLink{
		ResourceName:     resourceName,
		IdentityPath:     jsonpath.MustParse(identityPath),
		SubclassIdentity: jsonpath.MustParse(subclassIdentityPath),
	}
	return b
}

// WithAuthorizationPathways names the authorization pathways for the
// current resource.
func (b *Builder) WithAuthorizationPathways(names ...string) *Builder {
	b.mustResource().AuthorizationPathways = names
	return b
}

// Build finalizes the document. Open scopes are a programming error.
func (b *Builder) Build() *Document {
	if b.project != nil || b.resource != nil {
		panic("apischema: Build with open scope")
	}
	return &Document{reloadID: b.reloadID, projects: b.projects}
}

func parsePaths(raw []string) []jsonpath.Path {
	out := make([]jsonpath.Path, 0, len(raw))
	for _, r := range raw {
		out = append(out, jsonpath.MustParse(r))
	}
	return out
}
