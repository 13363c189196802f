package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/pkg/config"
	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/presenter"
	"github.com/agentdeck/agentdeck/pkg/skills"
	"github.com/agentdeck/agentdeck/pkg/skills/importer"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage installed skills",
	Long:  `Import, list, edit, update, and remove agent skills.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	skillImportCmd.Flags().String("branch", "", "Branch to clone for git imports")
	skillImportCmd.Flags().String("slug", "", "Slug hint overriding the derived name")

	skillEditCmd.Flags().String("name", "", "New display name")
	skillEditCmd.Flags().String("description", "", "New description")
	skillEditCmd.Flags().String("icon", "", "New icon (emoji or absolute URL)")
	skillEditCmd.Flags().StringSlice("globs", nil, "Glob triggers, replaces the existing set")
	skillEditCmd.Flags().StringSlice("always-allow", nil, "Always-allowed tool names, replaces the existing set")
	skillEditCmd.Flags().String("content-file", "", "File whose contents replace the skill body")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillImportCmd)
	skillCmd.AddCommand(skillEditCmd)
	skillCmd.AddCommand(skillRemoveCmd)
	skillCmd.AddCommand(skillUpdateCmd)
}

func newImporter(cfg *config.Config) *importer.Importer {
	var opts []importer.Option
	if cfg.GitPath != "" {
		opts = append(opts, importer.WithGitLocator(&gitexec.SystemLocator{BundledPath: cfg.GitPath}))
	}
	return importer.New(cfg.WorkspaceRoot, opts...)
}

var skillListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		installed := skills.LoadAll(cmd.Context(), cfg.WorkspaceRoot)
		if len(installed) == 0 {
			presenter.Info("No skills installed")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tNAME\tSOURCE\tVERSION\tDESCRIPTION")
		for _, skill := range installed {
			sourceType, version := "", ""
			if skill.Source != nil {
				sourceType = string(skill.Source.Type)
				version = skill.Source.Version
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				skill.Slug, skill.Metadata.Name, sourceType, version, truncate(skill.Metadata.Description, 60))
		}
		return tw.Flush()
	},
}

var skillImportCmd = &cobra.Command{
	Use:   "import <path-or-url>",
	Short: "Import a skill from a folder, zip, SKILL.md, git repository, or URL",
	Long: `Import a skill into the workspace.

Examples:
  agentdeck skill import ./my-skill                # folder with SKILL.md
  agentdeck skill import ./my-skill.zip            # zip archive
  agentdeck skill import ./SKILL.md                # single file
  agentdeck skill import https://github.com/o/r    # git repository
  agentdeck skill import https://github.com/o/r/tree/main/skills/foo
  agentdeck skill import https://skills.sh/s/reviewer.zip
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		branch, _ := cmd.Flags().GetString("branch")
		slugHint, _ := cmd.Flags().GetString("slug")

		skill, err := importSkillTarget(cmd.Context(), newImporter(cfg), args[0], branch, slugHint)
		if err != nil {
			return err
		}

		presenter.Success(fmt.Sprintf("Installed skill '%s' (%s)", skill.Slug, skill.Metadata.Name))
		return nil
	},
}

// importSkillTarget routes an import target to the matching importer entry
// point: remote URLs by shape, local paths by type.
func importSkillTarget(ctx context.Context, imp *importer.Importer, target, branch, slugHint string) (*skills.Skill, error) {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "git@") {
		switch {
		case importer.IsGitHubTreeURL(target):
			if branch != "" {
				return nil, errors.New("--branch does not apply to tree or blob URLs, the branch is part of the URL")
			}
			return imp.ImportURL(ctx, target, importer.URLOptions{SlugHint: slugHint})
		case branch != "":
			return imp.ImportGit(ctx, target, branch)
		default:
			return imp.ImportURL(ctx, target, importer.URLOptions{SlugHint: slugHint})
		}
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot access %s", target)
	}
	switch {
	case info.IsDir():
		return imp.ImportFolder(ctx, target)
	case strings.EqualFold(filepath.Ext(target), ".zip"):
		return imp.ImportZip(ctx, target)
	default:
		return imp.ImportFile(ctx, target, slugHint)
	}
}

var skillEditCmd = &cobra.Command{
	Use:   "edit <slug>",
	Short: "Edit a skill's metadata or body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		slug := args[0]

		skill, err := skills.Load(ctx, cfg.WorkspaceRoot, slug)
		if err != nil {
			return err
		}
		if skill == nil {
			return errors.Errorf("skill %s is not installed or is invalid", slug)
		}

		metadata := skill.Metadata
		content := skill.Content

		if v, _ := cmd.Flags().GetString("name"); v != "" {
			metadata.Name = v
		}
		if v, _ := cmd.Flags().GetString("description"); v != "" {
			metadata.Description = v
		}
		if cmd.Flags().Changed("icon") {
			metadata.Icon, _ = cmd.Flags().GetString("icon")
		}
		if cmd.Flags().Changed("globs") {
			metadata.Globs, _ = cmd.Flags().GetStringSlice("globs")
		}
		if cmd.Flags().Changed("always-allow") {
			metadata.AlwaysAllow, _ = cmd.Flags().GetStringSlice("always-allow")
		}
		if path, _ := cmd.Flags().GetString("content-file"); path != "" {
			raw, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", path)
			}
			content = string(raw)
		}

		updated, err := skills.Update(ctx, cfg.WorkspaceRoot, slug, metadata, content)
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Updated skill '%s'", updated.Slug))
		return nil
	},
}

var skillRemoveCmd = &cobra.Command{
	Use:   "remove <slug>",
	Short: "Remove an installed skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		if !skills.Delete(cmd.Context(), cfg.WorkspaceRoot, args[0]) {
			presenter.Warning(fmt.Sprintf("Skill '%s' is not installed", args[0]))
			return nil
		}
		presenter.Success(fmt.Sprintf("Removed skill '%s'", args[0]))
		return nil
	},
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
