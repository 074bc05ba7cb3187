package profile

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Definition-file DTOs. Profiles are authored in YAML and decoded through
// mapstructure so authoring key casing stays flexible.

type profileFile struct {
	Profiles []profileDefinition `mapstructure:"profiles"`
}

type profileDefinition struct {
	Name      string               `mapstructure:"name"`
	Resources []resourceDefinition `mapstructure:"resources"`
}

type resourceDefinition struct {
	ResourceName string              `mapstructure:"resourceName"`
	Read         *contentTypeDefFile `mapstructure:"read"`
	Write        *contentTypeDefFile `mapstructure:"write"`
}

type contentTypeDefFile struct {
	MemberSelection string                    `mapstructure:"memberSelection"`
	Properties      []string                  `mapstructure:"properties"`
	Objects         map[string]objectRuleFile `mapstructure:"objects"`
	Collections     map[string]collectionFile `mapstructure:"collections"`
}

type objectRuleFile struct {
	MemberSelection string   `mapstructure:"memberSelection"`
	Properties      []string `mapstructure:"properties"`
}

type collectionFile struct {
	MemberSelection string          `mapstructure:"memberSelection"`
	Properties      []string        `mapstructure:"properties"`
	ItemFilter      *itemFilterFile `mapstructure:"itemFilter"`
}

type itemFilterFile struct {
	Property string   `mapstructure:"property"`
	Mode     string   `mapstructure:"mode"`
	Values   []string `mapstructure:"values"`
}

func (d profileDefinition) validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Resources, validation.Required),
	)
}

var memberSelections = []any{"", string(IncludeAll), string(IncludeOnly), string(ExcludeOnly)}

func (c contentTypeDefFile) validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MemberSelection, validation.In(memberSelections...)),
	)
}

// LoadFile reads profile definitions from a YAML file and returns them
// keyed for the Registry resolver.
func LoadFile(fs afero.Fs, path string) (map[string]map[string]*ResourceProfile, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile definitions: %w", err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse profile definitions: %w", err)
	}

	var file profileFile
	if err := mapstructure.Decode(tree, &file); err != nil {
		return nil, fmt.Errorf("failed to decode profile definitions: %w", err)
	}

	profiles := make(map[string]map[string]*ResourceProfile, len(file.Profiles))
	for _, def := range file.Profiles {
		if err := def.validate(); err != nil {
			return nil, fmt.Errorf("invalid profile definition %q: %w", def.Name, err)
		}

		resources := make(map[string]*ResourceProfile, len(def.Resources))
		for _, res := range def.Resources {
			read, err := buildContentType(res.Read)
			if err != nil {
				return nil, fmt.Errorf("profile %q resource %q read: %w", def.Name, res.ResourceName, err)
			}
			write, err := buildContentType(res.Write)
			if err != nil {
				return nil, fmt.Errorf("profile %q resource %q write: %w", def.Name, res.ResourceName, err)
			}
			resources[strings.ToLower(res.ResourceName)] = &ResourceProfile{
				ResourceName: res.ResourceName,
				Read:         read,
				Write:        write,
			}
		}
		profiles[strings.ToLower(def.Name)] = resources
	}
	return profiles, nil
}

func buildContentType(file *contentTypeDefFile) (*ContentTypeDefinition, error) {
	if file == nil {
		return nil, nil
	}
	if err := file.validate(); err != nil {
		return nil, err
	}

	def := &ContentTypeDefinition{
		MemberSelection: memberSelection(file.MemberSelection),
		Properties:      file.Properties,
		ObjectRules:     make(map[string]ObjectRule, len(file.Objects)),
		CollectionRules: make(map[string]CollectionRule, len(file.Collections)),
	}
	for name, rule := range file.Objects {
		def.ObjectRules[name] = ObjectRule{
			MemberSelection: memberSelection(rule.MemberSelection),
			Properties:      rule.Properties,
		}
	}
	for name, rule := range file.Collections {
		cr := CollectionRule{
			MemberSelection: memberSelection(rule.MemberSelection),
			Properties:      rule.Properties,
		}
		if rule.ItemFilter != nil {
			cr.ItemFilter = &ItemFilter{
				PropertyName: rule.ItemFilter.Property,
				Mode:         memberSelection(rule.ItemFilter.Mode),
				Values:       rule.ItemFilter.Values,
			}
		}
		def.CollectionRules[name] = cr
	}
	return def, nil
}

func memberSelection(raw string) MemberSelection {
	if raw == "" {
		return IncludeAll
	}
	return MemberSelection(raw)
}
