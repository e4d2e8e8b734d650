package normalize

import (
	"iac-pipeline/core/types"
)

// DetailsKey holds the whole planned state of resource types the registry does not know
const DetailsKey = "details"

// ProjectKey is copied for every resource type when present
const ProjectKey = "project"

// RawChange is one entry of a plan's resource_changes as emitted by `tofu show -json`
type RawChange struct {
	Address      string `json:"address"`
	Mode         string `json:"mode,omitempty"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	ProviderName string `json:"provider_name"`
	Change       Change `json:"change"`
}

// Change is the planned change of a RawChange
type Change struct {
	Actions []string               `json:"actions"`
	After   map[string]interface{} `json:"after"`
}

// Normalizer turns raw changes into ResourceChange records
type Normalizer struct {
	registry *Registry
}

// New creates a normalizer over registry. A nil registry uses the built-in table.
func New(registry *Registry) *Normalizer {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Normalizer{registry: registry}
}

// Registry returns the normalizer's registry
func (n *Normalizer) Registry() *Registry {
	return n.registry
}

// Normalize maps raw into a ResourceChange. It never fails: unknown types keep
// their full planned state under DetailsKey and absent fields are omitted.
func (n *Normalizer) Normalize(resourceType string, raw RawChange) types.ResourceChange {
	rc := types.ResourceChange{
		Address:      raw.Address,
		Type:         resourceType,
		ProviderName: raw.ProviderName,
		Actions:      append([]string{}, raw.Change.Actions...),
		ResourceName: raw.Name,
		Attributes:   make(map[string]interface{}),
	}

	after := raw.Change.After
	if fields, ok := n.registry.Fields(resourceType); ok {
		for _, f := range fields {
			if v, present := after[f]; present {
				rc.Attributes[f] = deepCopy(v)
			}
		}
	} else {
		details := make(map[string]interface{}, len(after))
		for k, v := range after {
			details[k] = deepCopy(v)
		}
		rc.Attributes[DetailsKey] = details
	}

	if v, present := after[ProjectKey]; present {
		rc.Attributes[ProjectKey] = deepCopy(v)
	}

	return rc
}

// NormalizeAll normalizes raws in order
func (n *Normalizer) NormalizeAll(raws []RawChange) []types.ResourceChange {
	out := make([]types.ResourceChange, 0, len(raws))
	for _, raw := range raws {
		out = append(out, n.Normalize(raw.Type, raw))
	}
	return out
}

// Raw rebuilds the raw change a ResourceChange was normalized from, as far as
// the record retains it. Normalizing the result yields rc again.
func (n *Normalizer) Raw(rc types.ResourceChange) RawChange {
	after := make(map[string]interface{})
	if _, known := n.registry.Fields(rc.Type); known {
		for k, v := range rc.Attributes {
			after[k] = deepCopy(v)
		}
	} else {
		if details, ok := rc.Attributes[DetailsKey].(map[string]interface{}); ok {
			for k, v := range details {
				after[k] = deepCopy(v)
			}
		}
		if v, ok := rc.Attributes[ProjectKey]; ok {
			after[ProjectKey] = deepCopy(v)
		}
	}

	return RawChange{
		Address:      rc.Address,
		Type:         rc.Type,
		Name:         rc.ResourceName,
		ProviderName: rc.ProviderName,
		Change: Change{
			Actions: append([]string{}, rc.Actions...),
			After:   after,
		},
	}
}

func deepCopy(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}
		return s
	default:
		return v
	}
}
