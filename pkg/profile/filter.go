package profile

// FilterDocument applies a content-type definition to one document,
// returning a filtered copy. The "id" field and any property named in
// identityPropertyNames survive regardless of member-selection mode.
// A nil definition or non-object document passes through unfiltered.
func FilterDocument(
	doc map[string]any,
	definition *ContentTypeDefinition,
	identityPropertyNames map[string]struct{},
) map[string]any {
	if doc == nil || definition == nil {
		return doc
	}

	listed := toSet(definition.Properties)
	result := make(map[string]any, len(doc))

	for name, value := range doc {
		if name == "id" {
			result[name] = clone(value)
			continue
		}
		if _, isIdentity := identityPropertyNames[name]; isIdentity {
			result[name] = clone(value)
			continue
		}

		if rule, ok := definition.ObjectRules[name]; ok {
			if nested, isObject := value.(map[string]any); isObject {
				result[name] = filterObject(nested, rule)
			}
			continue
		}

		if rule, ok := definition.CollectionRules[name]; ok {
			if items, isArray := value.([]any); isArray {
				result[name] = filterCollection(items, rule)
			}
			continue
		}

		_, isListed := listed[name]
		if definition.MemberSelection.includes(name, isListed) {
			result[name] = clone(value)
		}
	}

	return result
}

func filterObject(source map[string]any, rule ObjectRule) map[string]any {
	listed := toSet(rule.Properties)
	result := make(map[string]any, len(source))
	for name, value := range source {
		_, isListed := listed[name]
		if rule.MemberSelection.includes(name, isListed) {
			result[name] = clone(value)
		}
	}
	return result
}

func filterCollection(items []any, rule CollectionRule) []any {
	listed := toSet(rule.Properties)
	result := make([]any, 0, len(items))

	for _, item := range items {
		element, isObject := item.(map[string]any)
		if !isObject {
			result = append(result, clone(item))
			continue
		}

		if rule.ItemFilter != nil && !itemAllowed(element, rule.ItemFilter) {
			continue
		}

		filtered := make(map[string]any, len(element))
		for name, value := range element {
			_, isListed := listed[name]
			if rule.MemberSelection.includes(name, isListed) {
				filtered[name] = clone(value)
			}
		}
		result = append(result, filtered)
	}

	return result
}

// itemAllowed decides whether a collection element survives the item
// filter. Elements missing the filtered property are kept: the filter
// constrains values, and absence is a schema-validation concern.
func itemAllowed(element map[string]any, filter *ItemFilter) bool {
	value, present := element[filter.PropertyName]
	if !present {
		return true
	}
	text, isString := value.(string)
	if !isString {
		return true
	}

	inSet := false
	for _, allowed := range filter.Values {
		if allowed == text {
			inSet = true
			break
		}
	}

	if filter.Mode == ExcludeOnly {
		return !inSet
	}
	return inSet
}

// clone deep-copies a parsed JSON value so filtered documents never alias
// the source tree.
func clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = clone(item)
		}
		return out
	default:
		return v
	}
}
