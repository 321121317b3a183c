package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentpkg/srcdeps/pkg/vcs"
	"github.com/agentpkg/srcdeps/pkg/vcs/git"
	"github.com/agentpkg/srcdeps/pkg/version"
)

func newVersionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <git-url> [selector]",
		Short: "List the released versions of a repository",
		Long: `Lists the versions tagged in a git repository, newest first.

When a selector such as 1.+, [1.0,2.0) or ^1.2 is given, only the versions
it accepts are listed.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runVersions,
	}
}

func runVersions(cmd *cobra.Command, args []string) error {
	var selector version.Selector
	if len(args) == 2 {
		sel, err := version.DefaultScheme.Parse(args[1])
		if err != nil {
			return err
		}
		selector = sel
	}

	conn, err := vcs.Factory{}.Connect(git.Spec{URL: args[0]})
	if err != nil {
		return err
	}
	refs, err := conn.AvailableVersions(cmd.Context())
	if err != nil {
		return err
	}

	refs = filterVersions(refs, selector)
	out := cmd.OutOrStdout()
	for _, ref := range refs {
		fmt.Fprintf(out, "%s\t%s\n", ref.Version, shortRevision(ref.CanonicalID))
	}
	if len(refs) == 0 {
		fmt.Fprintln(out, "No matching versions")
	}
	return nil
}

// filterVersions keeps the refs sel accepts (all when sel is nil), newest
// first.
func filterVersions(refs []vcs.VersionRef, sel version.Selector) []vcs.VersionRef {
	var kept []vcs.VersionRef
	for _, ref := range refs {
		if sel == nil || sel.Accept(version.Parse(ref.Version)) {
			kept = append(kept, ref)
		}
	}
	slices.SortStableFunc(kept, func(a, b vcs.VersionRef) int {
		return version.Compare(version.Parse(b.Version), version.Parse(a.Version))
	})
	return kept
}
