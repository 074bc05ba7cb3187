package apischema

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/iancoleman/strcase"
	"github.com/spf13/afero"
)

// File-format DTOs. The schema file is the compiled output of upstream
// authoring tooling; this loader only consumes it.

type schemaFile struct {
	ProjectSchemas map[string]projectSchemaFile `json:"projectSchemas"`
}

type projectSchemaFile struct {
	ProjectName     string                        `json:"projectName"`
	ProjectVersion  string                        `json:"projectVersion"`
	ResourceSchemas map[string]resourceSchemaFile `json:"resourceSchemas"`
}

type resourceSchemaFile struct {
	ResourceName               string                      `json:"resourceName"`
	IsDescriptor               bool                        `json:"isDescriptor"`
	JSONSchemaForInsert        map[string]any              `json:"jsonSchemaForInsert"`
	JSONSchemaForUpdate        map[string]any              `json:"jsonSchemaForUpdate"`
	IdentityJSONPaths          []string                    `json:"identityJsonPaths"`
	BooleanJSONPaths           []string                    `json:"booleanJsonPaths"`
	NumericJSONPaths           []string                    `json:"numericJsonPaths"`
	DateJSONPaths              []string                    `json:"dateJsonPaths"`
	DateTimeJSONPaths          []string                    `json:"dateTimeJsonPaths"`
	DecimalValidationInfos     []decimalInfoFile           `json:"decimalPropertyValidationInfos"`
	EqualityConstraints        []equalityConstraintFile    `json:"equalityConstraints"`
	ArrayUniquenessConstraints []arrayUniquenessFile       `json:"arrayUniquenessConstraints"`
	QueryFieldMapping          map[string][]queryFieldFile `json:"queryFieldMapping"`
	SecurityElements           securityElementsFile        `json:"securityElements"`
	Superclass                 *superclassFile             `json:"superclass"`
	AuthorizationPathways      []string                    `json:"authorizationPathways"`
}

type decimalInfoFile struct {
	Path          string `json:"path"`
	TotalDigits   int    `json:"totalDigits"`
	DecimalPlaces int    `json:"decimalPlaces"`
}

type equalityConstraintFile struct {
	SourceJSONPath string `json:"sourceJsonPath"`
	TargetJSONPath string `json:"targetJsonPath"`
}

type arrayUniquenessFile struct {
	BasePath string   `json:"basePath"`
	Paths    []string `json:"paths"`
}

type queryFieldFile struct {
	Path string `json:"path"`
	Type string `json:"type"`
}

type securityElementsFile struct {
	Namespace             []string    `json:"Namespace"`
	EducationOrganization []edOrgFile `json:"EducationOrganization"`
	Student               []string    `json:"Student"`
	Contact               []string    `json:"Contact"`
	Staff                 []string    `json:"Staff"`
}

type edOrgFile struct {
	ResourceName string `json:"resourceName"`
	Path         string `json:"path"`
}

type superclassFile struct {
	ResourceName             string `json:"resourceName"`
	IdentityJSONPath         string `json:"identityJsonPath"`
	SubclassIdentityJSONPath string `json:"subclassIdentityJsonPath"`
}

// LoadFile reads and parses an API schema document from fs. Each successful
// load yields a new reload identifier.
func LoadFile(fs afero.Fs, path string) (doc *Document, err error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read api schema file: %w", err)
	}
	return Parse(raw)
}

// Parse parses an API schema document from raw JSON.
func Parse(raw []byte) (doc *Document, err error) {
	// Builder methods panic on structural misuse; a malformed file (e.g. a
	// bad JSON path) must surface as an error, not a crash.
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("invalid api schema document: %v", r)
		}
	}()

	var file schemaFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse api schema file: %w", err)
	}
	if len(file.ProjectSchemas) == 0 {
		return nil, fmt.Errorf("api schema file has no project schemas")
	}
	if err := validateFile(&file); err != nil {
		return nil, err
	}

	b := NewBuilder().WithReloadID(uuid.NewString())
	for endpointName, project := range file.ProjectSchemas {
		b.StartProject(project.ProjectName, endpointName, project.ProjectVersion)
		for resourceEndpoint, res := range project.ResourceSchemas {
			if resourceEndpoint == "" {
				resourceEndpoint = defaultEndpointName(res.ResourceName)
			}
			buildResource(b, resourceEndpoint, res)
		}
		b.EndProject()
	}
	return b.Build(), nil
}

// validateFile checks every project and resource for structural problems
// and reports all of them at once rather than stopping at the first.
func validateFile(file *schemaFile) error {
	var errs *multierror.Error
	for endpointName, project := range file.ProjectSchemas {
		if project.ProjectName == "" {
			errs = multierror.Append(errs,
				fmt.Errorf("project %q has no project name", endpointName))
		}
		for resourceEndpoint, res := range project.ResourceSchemas {
			if res.ResourceName == "" {
				errs = multierror.Append(errs, fmt.Errorf(
					"resource %q in project %q has no resource name",
					resourceEndpoint, endpointName))
			}
			if res.JSONSchemaForInsert == nil {
				errs = multierror.Append(errs, fmt.Errorf(
					"resource %q in project %q has no insert schema",
					resourceEndpoint, endpointName))
			}
		}
	}
	return errs.ErrorOrNil()
}

// defaultEndpointName derives an endpoint name from a resource name when
// the schema file omits one, e.g. "StudentSchoolAssociation" becomes
// "studentSchoolAssociations".
func defaultEndpointName(resourceName string) string {
	return strcase.ToLowerCamel(resourceName) + "s"
}

func buildResource(b *Builder, endpointName string, res resourceSchemaFile) {
	b.StartResource(res.ResourceName, endpointName)
	if res.IsDescriptor {
		b.AsDescriptor()
	}
	b.WithInsertSchema(res.JSONSchemaForInsert)
	if res.JSONSchemaForUpdate != nil {
		b.WithUpdateSchema(res.JSONSchemaForUpdate)
	}
	b.WithIdentityPaths(res.IdentityJSONPaths...)
	b.WithBooleanPaths(res.BooleanJSONPaths...)
	b.WithNumericPaths(res.NumericJSONPaths...)
	b.WithDatePaths(res.DateJSONPaths...)
	b.WithDateTimePaths(res.DateTimeJSONPaths...)
	for _, d := range res.DecimalValidationInfos {
		b.WithDecimalRule(d.Path, d.TotalDigits, d.DecimalPlaces)
	}
	for _, eq := range res.EqualityConstraints {
		b.WithEqualityConstraint(eq.SourceJSONPath, eq.TargetJSONPath)
	}
	for _, au := range res.ArrayUniquenessConstraints {
		b.WithArrayUniquenessConstraint(au.BasePath, au.Paths...)
	}
	for name, fields := range res.QueryFieldMapping {
		if len(fields) == 0 {
			continue
		}
		paths := make([]string, 0, len(fields))
		for _, f := range fields {
			paths = append(paths, f.Path)
		}
		b.WithQueryField(name, fields[0].Type, paths...)
	}
	b.WithNamespaceSecurityPaths(res.SecurityElements.Namespace...)
	for _, eo := range res.SecurityElements.EducationOrganization {
		b.WithEducationOrganizationSecurityPath(eo.ResourceName, eo.Path)
	}
	b.WithStudentSecurityPaths(res.SecurityElements.Student...)
	b.WithContactSecurityPaths(res.SecurityElements.Contact...)
	b.WithStaffSecurityPaths(res.SecurityElements.Staff...)
	if sc := res.Superclass; sc != nil {
		b.WithSuperclass(sc.ResourceName, sc.IdentityJSONPath, sc.SubclassIdentityJSONPath)
	}
	if len(res.AuthorizationPathways) > 0 {
		b.WithAuthorizationPathways(res.AuthorizationPathways...)
	}
	b.EndResource()
}
