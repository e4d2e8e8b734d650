// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and
// the invariants their constructors enforce.
package types

import (
	"path/filepath"
	"strings"
)

// VariantName identifies a candidate infrastructure topology ("native", "cloud-run").
// Catalog keys are namespaced variant names ("vm:native").
type VariantName string

// String returns the string representation
func (v VariantName) String() string {
	return string(v)
}

// Group is the catalog group a variant belongs to
type Group string

const (
	GroupVM   Group = "vm"
	GroupPaaS Group = "paas"
)

// String returns the string representation
func (g Group) String() string {
	return string(g)
}

// Key namespaces a variant name under group, e.g. Key(GroupVM, "native") = "vm:native".
func Key(g Group, name VariantName) VariantName {
	return VariantName(string(g) + ":" + string(name))
}

// SplitKey reverses Key. ok is false when key carries no known group prefix.
func SplitKey(key VariantName) (g Group, name VariantName, ok bool) {
	prefix, rest, found := strings.Cut(string(key), ":")
	if !found || rest == "" {
		return "", "", false
	}
	switch Group(prefix) {
	case GroupVM, GroupPaaS:
		return Group(prefix), VariantName(rest), true
	}
	return "", "", false
}

// InGroup reports whether key is namespaced under g
func InGroup(key VariantName, g Group) bool {
	kg, _, ok := SplitKey(key)
	return ok && kg == g
}

// Bundle is a directory tree holding infrastructure definitions for one or
// more variants, one sub-directory per variant.
type Bundle struct {
	Root string `json:"root"`
}

// NewBundle creates a bundle handle
func NewBundle(root string) Bundle {
	return Bundle{Root: filepath.Clean(root)}
}

// VariantDir returns the directory holding a variant's definitions
func (b Bundle) VariantDir(name VariantName) string {
	return filepath.Join(b.Root, string(name))
}

// String returns the bundle root
func (b Bundle) String() string {
	return b.Root
}
