// Package normalize maps provider-specific planned changes into the uniform
// ResourceChange record. Which attributes survive is decided by a registry
// of resource type -> field list, so supporting a new type is a data change.
package normalize

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps resource types to the attribute keys worth keeping
type Registry struct {
	mu     sync.RWMutex
	fields map[string][]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		fields: make(map[string][]string),
	}
}

// builtinFields covers the GCP resources the VM and PaaS bundles declare
var builtinFields = map[string][]string{
	"google_compute_instance":             {"name", "machine_type", "zone", "tags", "labels", "boot_disk", "network_interface"},
	"google_compute_address":              {"name", "address_type", "region", "network_tier"},
	"google_compute_firewall":             {"name", "network", "direction", "source_ranges", "allow"},
	"google_compute_network":              {"name", "auto_create_subnetworks"},
	"google_compute_subnetwork":           {"name", "ip_cidr_range", "region", "network"},
	"google_compute_disk":                 {"name", "type", "size", "zone"},
	"google_container_cluster":            {"name", "location", "initial_node_count", "enable_autopilot", "node_config"},
	"google_container_node_pool":          {"name", "location", "node_count", "node_config"},
	"google_cloud_run_service":            {"name", "location", "template"},
	"google_cloud_run_v2_service":         {"name", "location", "ingress", "template"},
	"google_sql_database_instance":        {"name", "database_version", "region", "settings", "deletion_protection"},
	"google_sql_database":                 {"name", "instance"},
	"google_storage_bucket":               {"name", "location", "storage_class", "versioning", "force_destroy"},
	"google_artifact_registry_repository": {"repository_id", "location", "format"},
}

// DefaultRegistry returns a registry preloaded with the built-in table
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for t, f := range builtinFields {
		if err := r.Register(t, f...); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a resource type. It fails if the type is already known.
func (r *Registry) Register(resourceType string, fields ...string) error {
	if resourceType == "" {
		return fmt.Errorf("resource type is required")
	}
	if len(fields) == 0 {
		return fmt.Errorf("resource type %s: at least one field is required", resourceType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.fields[resourceType]; exists {
		return fmt.Errorf("resource type already registered: %s", resourceType)
	}
	r.fields[resourceType] = append([]string(nil), fields...)
	return nil
}

// Extend merges table into the registry, replacing entries for types already present.
func (r *Registry) Extend(table map[string][]string) error {
	for t, f := range table {
		if t == "" || len(f) == 0 {
			return fmt.Errorf("invalid registry entry %q: %v", t, f)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for t, f := range table {
		r.fields[t] = append([]string(nil), f...)
	}
	return nil
}

// Fields returns the field list for a resource type
func (r *Registry) Fields(resourceType string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.fields[resourceType]
	if !ok {
		return nil, false
	}
	return append([]string(nil), f...), true
}

// Types returns all registered types, sorted
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.fields))
	for t := range r.fields {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
