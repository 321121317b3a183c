package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/agentpkg/srcdeps/pkg/config"
	"github.com/agentpkg/srcdeps/pkg/project"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new srcdeps project",
		Long:  "Creates a srcdeps.toml manifest and configures .gitignore entries.",
		RunE:  runInit,
		// init does not need dev config resolution; skip the root PersistentPreRunE.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.Flags().String("name", "", "project name (prompted for when omitted)")
	cmd.Flags().Bool("local-store", false, "keep checkouts in "+project.LocalStoreDir+" inside the project")
	cmd.Flags().Bool("yes", false, "accept defaults without prompting")
	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	localStore, err := cmd.Flags().GetBool("local-store")
	if err != nil {
		return err
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return err
	}

	if !yes {
		if name == "" {
			name = project.InferName(wd)
			if err := promptName(&name); err != nil {
				return err
			}
		}
		if !cmd.Flags().Changed("local-store") {
			if err := promptLocalStore(&localStore); err != nil {
				return err
			}
		}
	}
	if name == "" {
		name = project.InferName(wd)
	}

	if err := project.Init(wd, name); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", project.ManifestFile)

	gitignoreEntries := []string{config.LocalConfigFile}
	if localStore {
		if err := config.WriteLocalDevConfig(wd, &config.DevConfig{StoreDir: project.LocalStoreDir}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (checkouts in %s)\n", config.LocalConfigFile, project.LocalStoreDir)
		gitignoreEntries = append(gitignoreEntries, project.LocalStoreDir)
	}
	added, err := project.EnsureGitignore(wd, gitignoreEntries)
	if err != nil {
		return err
	}
	for _, entry := range added {
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s to .gitignore\n", entry)
	}

	return nil
}

// promptName asks for the project name, offering the inferred one.
func promptName(name *string) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(name).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("name must not be empty")
					}
					return nil
				}),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func promptLocalStore(local *bool) error {
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Keep checkouts in " + project.LocalStoreDir + " inside the project?").
				Description("Otherwise they are shared between projects in ~/.srcdeps.").
				Value(local),
		),
	).Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}
