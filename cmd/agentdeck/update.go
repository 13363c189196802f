package main

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/pkg/catalog"
	"github.com/agentdeck/agentdeck/pkg/config"
	"github.com/agentdeck/agentdeck/pkg/gitexec"
	"github.com/agentdeck/agentdeck/pkg/presenter"
	"github.com/agentdeck/agentdeck/pkg/skills"
	"github.com/agentdeck/agentdeck/pkg/skills/updater"
)

var skillUpdateCmd = &cobra.Command{
	Use:   "update [slug...]",
	Short: "Check for and apply skill updates",
	Long: `Check installed skills against the catalog and their git remotes, and
re-import those with newer versions.

Examples:
  agentdeck skill update --check     # report available updates only
  agentdeck skill update             # update everything that has one
  agentdeck skill update reviewer    # update one skill
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		checkOnly, _ := cmd.Flags().GetBool("check")
		ctx := cmd.Context()

		var targets []*skills.Skill
		if len(args) > 0 {
			for _, slug := range args {
				skill, err := skills.Load(ctx, cfg.WorkspaceRoot, slug)
				if err != nil {
					return err
				}
				if skill == nil {
					return errors.Errorf("skill %s is not installed or is invalid", slug)
				}
				targets = append(targets, skill)
			}
		} else {
			targets = skills.LoadAll(ctx, cfg.WorkspaceRoot)
		}
		if len(targets) == 0 {
			presenter.Info("No skills installed")
			return nil
		}

		// Update checks tolerate a missing catalog; skillssh entries just
		// report no update in that case.
		fetcher := catalog.New()
		cat, err := fetcher.Get(ctx, false, cfg.CatalogRepoURL, cfg.CatalogTTL)
		if err != nil {
			presenter.Warning(fmt.Sprintf("Catalog unavailable: %v", err))
		}

		var opts []updater.Option
		if cfg.GitPath != "" {
			opts = append(opts,
				updater.WithGitLocator(&gitexec.SystemLocator{BundledPath: cfg.GitPath}),
				updater.WithImporter(newImporter(cfg)),
			)
		}
		u := updater.New(cfg.WorkspaceRoot, opts...)

		results := u.CheckAll(ctx, targets, cat)

		slugs := make([]string, 0, len(results))
		for slug := range results {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)

		updatable := make([]*skills.Skill, 0, len(targets))
		for _, skill := range targets {
			if results[skill.Slug] {
				updatable = append(updatable, skill)
			}
		}

		if checkOnly {
			for _, slug := range slugs {
				if results[slug] {
					presenter.Info(fmt.Sprintf("%s: update available", slug))
				} else {
					presenter.Info(fmt.Sprintf("%s: up to date", slug))
				}
			}
			return nil
		}

		if len(updatable) == 0 {
			presenter.Success("All skills are up to date")
			return nil
		}

		for _, skill := range updatable {
			updated, err := u.Update(ctx, skill, cat)
			if err != nil {
				presenter.Error(err, fmt.Sprintf("Failed to update '%s'", skill.Slug))
				continue
			}
			presenter.Success(fmt.Sprintf("Updated '%s' to %s", updated.Slug, describeVersion(updated)))
		}
		return nil
	},
}

func init() {
	skillUpdateCmd.Flags().Bool("check", false, "Only report which skills have updates")
}

func describeVersion(skill *skills.Skill) string {
	if skill.Source != nil && skill.Source.Version != "" {
		return skill.Source.Version
	}
	return "latest"
}
