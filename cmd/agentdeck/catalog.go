package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentdeck/agentdeck/pkg/catalog"
	"github.com/agentdeck/agentdeck/pkg/config"
	"github.com/agentdeck/agentdeck/pkg/presenter"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the remote skill catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

func init() {
	catalogListCmd.Flags().Bool("refresh", false, "Bypass the cache and fetch the catalog")
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogRefreshCmd)
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List skills available in the catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		refresh, _ := cmd.Flags().GetBool("refresh")

		cat, err := catalog.New().Get(cmd.Context(), refresh, cfg.CatalogRepoURL, cfg.CatalogTTL)
		if err != nil {
			return err
		}
		if len(cat.Skills) == 0 {
			presenter.Info("Catalog is empty")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SLUG\tNAME\tVERSION\tAUTHOR\tDESCRIPTION")
		for _, entry := range cat.Skills {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				entry.Slug, entry.Name, entry.Version, entry.Author, truncate(entry.Description, 60))
		}
		return tw.Flush()
	},
}

var catalogRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the catalog and refresh the local cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		cat, err := catalog.New().Fetch(cmd.Context(), cfg.CatalogRepoURL)
		if err != nil {
			return err
		}
		presenter.Success(fmt.Sprintf("Fetched %d skills from %s", len(cat.Skills), cfg.CatalogRepoURL))
		return nil
	},
}
