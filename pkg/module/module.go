package module

import (
	"fmt"
	"strings"

	"github.com/agentpkg/srcdeps/pkg/version"
)

// ID identifies a module independent of its version.
type ID struct {
	Group string
	Name  string
}

// ParseID parses "group:name".
func ParseID(s string) (ID, error) {
	group, name, ok := strings.Cut(s, ":")
	if !ok || group == "" || name == "" || strings.Contains(name, ":") {
		return ID{}, fmt.Errorf("invalid module %q: must be group:name", s)
	}
	return ID{Group: group, Name: name}, nil
}

func (id ID) String() string {
	return id.Group + ":" + id.Name
}

// VersionID is a module at a concrete version.
type VersionID struct {
	ID
	Version string
}

func (v VersionID) String() string {
	return v.ID.String() + ":" + v.Version
}

// ComponentSelector is a request for a component in the dependency graph.
type ComponentSelector interface {
	DisplayName() string
}

// ModuleSelector requests a module by coordinates and a version constraint.
type ModuleSelector struct {
	ID
	Constraint version.Constraint
}

var _ ComponentSelector = ModuleSelector{}

func (s ModuleSelector) DisplayName() string {
	return s.ID.String() + ":" + s.Constraint.String()
}

// ProjectSelector requests a project of an already known build. It never
// goes through source control resolution.
type ProjectSelector struct {
	Build string
	Path  string
}

var _ ComponentSelector = ProjectSelector{}

func (s ProjectSelector) DisplayName() string {
	return "project " + s.Build + s.Path
}

// ProjectComponentID identifies a project inside an included build.
type ProjectComponentID struct {
	Build string
	Path  string
}

func (p ProjectComponentID) String() string {
	return p.Build + p.Path
}
