package version

import (
	"errors"
	"fmt"
)

// Constraint is what a dependency declaration asks for: either a required
// version (which may be a dynamic selector such as "1.+") or a branch.
type Constraint struct {
	Branch   string `toml:"branch,omitempty"`
	Required string `toml:"version,omitempty"`
}

// ForBranch returns a constraint that tracks the head of a branch.
func ForBranch(branch string) Constraint {
	return Constraint{Branch: branch}
}

// ForVersion returns a constraint on a required version selector.
func ForVersion(required string) Constraint {
	return Constraint{Required: required}
}

func (c Constraint) IsBranch() bool {
	return c.Branch != ""
}

func (c Constraint) Validate() error {
	switch {
	case c.Branch != "" && c.Required != "":
		return fmt.Errorf("constraint sets both branch %q and version %q", c.Branch, c.Required)
	case c.Branch == "" && c.Required == "":
		return errors.New("constraint requires a branch or a version")
	}
	return nil
}

func (c Constraint) String() string {
	if c.Branch != "" {
		return "branch " + c.Branch
	}
	return c.Required
}
