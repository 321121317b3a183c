package depresolve

import (
	"fmt"

	"github.com/agentpkg/srcdeps/pkg/module"
	"github.com/agentpkg/srcdeps/pkg/vcs"
)

// Mappings finds the repository that builds a requested module.
type Mappings interface {
	Lookup(sel module.ModuleSelector) (vcs.Spec, bool)
}

// Rule maps modules to a repository. Exactly one of Module, Group or All
// selects what the rule applies to.
type Rule struct {
	Module *module.ID
	Group  string
	All    bool
	Spec   vcs.Spec
}

func (r Rule) String() string {
	switch {
	case r.Module != nil:
		return "module " + r.Module.String()
	case r.Group != "":
		return "group " + r.Group
	default:
		return "all modules"
	}
}

// RuleMappings applies rules by specificity: a module rule beats a group
// rule, which beats a catch-all. Within one level the first declared rule
// wins.
type RuleMappings struct {
	rules []Rule
}

var _ Mappings = &RuleMappings{}

func NewRuleMappings(rules ...Rule) (*RuleMappings, error) {
	for i, r := range rules {
		set := 0
		if r.Module != nil {
			set++
		}
		if r.Group != "" {
			set++
		}
		if r.All {
			set++
		}
		if set != 1 {
			return nil, fmt.Errorf("source control rule %d must match exactly one of a module, a group or all modules", i)
		}
		if r.Spec == nil {
			return nil, fmt.Errorf("source control rule for %s has no repository", r)
		}
	}
	return &RuleMappings{rules: rules}, nil
}

func (m *RuleMappings) Lookup(sel module.ModuleSelector) (vcs.Spec, bool) {
	matchers := []func(Rule) bool{
		func(r Rule) bool { return r.Module != nil && *r.Module == sel.ID },
		func(r Rule) bool { return r.Group != "" && r.Group == sel.Group },
		func(r Rule) bool { return r.All },
	}
	for _, match := range matchers {
		for _, r := range m.rules {
			if match(r) {
				return r.Spec, true
			}
		}
	}
	return nil, false
}
