package scope

import "errors"

// scopeFilterKeys are keys that cannot appear in caller-supplied filters.
// The scope layer owns them; letting callers set them would allow
// cross-project reads.
var scopeFilterKeys = []string{"project_id", "manager_id"}

// ErrScopeFieldInFilter indicates a caller tried to inject scope fields.
var ErrScopeFieldInFilter = errors.New("caller filters cannot contain scope fields")

// MergeFilter merges caller filters with the scope's filter, with the
// scope always winning. Returns ErrScopeFieldInFilter if the caller
// filter already names a scope field.
func MergeFilter(callerFilter map[string]interface{}, s Scope) (map[string]interface{}, error) {
	if callerFilter == nil {
		return s.Filter(), nil
	}

	for _, key := range scopeFilterKeys {
		if _, exists := callerFilter[key]; exists {
			return nil, ErrScopeFieldInFilter
		}
	}

	merged := make(map[string]interface{}, len(callerFilter)+2)
	for k, v := range callerFilter {
		merged[k] = v
	}
	for k, v := range s.Filter() {
		merged[k] = v
	}
	return merged, nil
}

// InjectMetadata overlays scope metadata onto a document metadata map,
// overwriting any caller-set scope fields.
func InjectMetadata(meta map[string]interface{}, s Scope) map[string]interface{} {
	if meta == nil {
		meta = make(map[string]interface{}, 2)
	}
	for k, v := range s.Metadata() {
		meta[k] = v
	}
	return meta
}
