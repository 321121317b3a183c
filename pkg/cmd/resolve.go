package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/agentpkg/srcdeps/pkg/config"
	"github.com/agentpkg/srcdeps/pkg/installer"
	"github.com/agentpkg/srcdeps/pkg/project"
	"github.com/agentpkg/srcdeps/pkg/session"
	"github.com/agentpkg/srcdeps/pkg/store"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve dependencies from srcdeps.toml",
		Long: `Resolves every dependency in srcdeps.toml to a checkout of the repository
that builds it, then records the selected revisions in srcdeps.lock.

With --offline only selections recorded by earlier runs are used and the
network is never contacted.`,
		Args: cobra.NoArgs,
		RunE: runResolve,
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}
	root, err := project.FindRoot(wd)
	if err != nil {
		return err
	}

	manifestPath := filepath.Join(root, project.ManifestFile)
	cfg, err := config.LoadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", manifestPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid %s: %w", manifestPath, err)
	}

	lockPath := filepath.Join(root, config.LockFileName)
	existingLock, err := config.LoadLockFile(lockPath)
	if err != nil {
		return fmt.Errorf("loading lockfile: %w", err)
	}

	s, err := openStore(root)
	if err != nil {
		return err
	}

	sess, err := session.Open(ctx, session.Options{
		Store:   s,
		Offline: DevCfg.Offline,
		Rules:   cfg.SourceControl,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slogcontext.FromCtx(ctx).Warn("closing session", "error", err)
		}
	}()

	inst := &installer.Installer{
		Session:     sess,
		Store:       s,
		Concurrency: DevCfg.Concurrency,
	}
	lf, err := inst.ResolveAll(ctx, cfg, existingLock)
	if err != nil {
		return err
	}

	if err := config.SaveLockFile(lockPath, lf); err != nil {
		return fmt.Errorf("writing lockfile: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, dep := range lf.Dependencies {
		fmt.Fprintf(out, "%s %s -> %s@%s (build %s%s)\n",
			dep.Name, dep.Module, dep.Version, shortRevision(dep.Revision), dep.Build, dep.Project)
	}
	for _, b := range sess.Builds.Builds() {
		fmt.Fprintf(out, "build %s: %s\n", b.Name, b.RootDir)
	}
	fmt.Fprintf(out, "Resolved %d dependenc%s\n", len(lf.Dependencies), plural(len(lf.Dependencies), "y", "ies"))
	return nil
}

// openStore opens the configured store. A relative store dir is taken
// relative to the project root.
func openStore(root string) (store.Store, error) {
	if DevCfg == nil || DevCfg.StoreDir == "" {
		return store.Default()
	}
	dir := DevCfg.StoreDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	return store.New(dir), nil
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
