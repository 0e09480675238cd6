package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-audit/internal/app"
	"github.com/JakeFAU/site-audit/internal/site"
)

var errSitesUnavailable = errors.New("site registry unavailable")

// newSitesCmd groups the registry subcommands. Every subcommand waits for
// the persisted list to load before touching it.
func newSitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Manage the registry of monitored sites",
	}
	cmd.AddCommand(newSitesListCmd(), newSitesAddCmd(), newSitesUpdateCmd(), newSitesRemoveCmd())
	return cmd
}

func newSitesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every registered site as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := loadedApp(cmd)
			if err != nil {
				return err
			}
			var (
				sites     []site.Site
				available bool
			)
			if err := appInstance.Do(cmd.Context(), func() { sites, available = appInstance.Sites().AllSites() }); err != nil {
				return err
			}
			if !available {
				return errSitesUnavailable
			}
			return printJSON(cmd.OutOrStdout(), sites)
		},
	}
}

// siteFlags binds the Values fields shared by add and update.
func siteFlags(cmd *cobra.Command, values *site.Values) {
	cmd.Flags().StringVar(&values.Name, "name", "", "display name")
	cmd.Flags().StringVar(&values.HomePageURL, "url", "", "home page URL (http or https)")
	cmd.Flags().IntVar(&values.MaximumPageCount, "max-pages", 0, "page cap per crawl round (0 means default)")
	cmd.Flags().StringSliceVar(&values.IncludedURLPrefixes, "prefix", nil, "restrict crawling to URLs under this prefix (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("url")
}

func newSitesAddCmd() *cobra.Command {
	var values site.Values
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new site and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := values.Validate(); err != nil {
				return err
			}
			appInstance, err := loadedApp(cmd)
			if err != nil {
				return err
			}
			var created site.Site
			if err := appInstance.Do(cmd.Context(), func() { created = appInstance.Sites().CreateSite(values) }); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	siteFlags(cmd, &values)
	return cmd
}

func newSitesUpdateCmd() *cobra.Command {
	var values site.Values
	cmd := &cobra.Command{
		Use:   "update UUID",
		Short: "Replace the values of a registered site",
		Long:  "Replace the values of a registered site. An unknown UUID leaves the registry unchanged.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid site uuid %q: %w", args[0], err)
			}
			if err := values.Validate(); err != nil {
				return err
			}
			appInstance, err := loadedApp(cmd)
			if err != nil {
				return err
			}
			var updated bool
			if err := appInstance.Do(cmd.Context(), func() { updated = appInstance.Sites().UpdateSite(id, values) }); err != nil {
				return err
			}
			if !updated {
				fmt.Fprintf(cmd.OutOrStdout(), "no site with uuid %s\n", id)
			}
			return nil
		},
	}
	siteFlags(cmd, &values)
	return cmd
}

func newSitesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove UUID",
		Aliases: []string{"rm"},
		Short:   "Remove a site from the registry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid site uuid %q: %w", args[0], err)
			}
			appInstance, err := loadedApp(cmd)
			if err != nil {
				return err
			}
			var removed int
			if err := appInstance.Do(cmd.Context(), func() { removed = appInstance.Sites().RemoveSite(id) }); err != nil {
				return err
			}
			if removed == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "no site with uuid %s\n", id)
			}
			return nil
		},
	}
}

func loadedApp(cmd *cobra.Command) (*app.App, error) {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return nil, err
	}
	if err := appInstance.WaitLoaded(cmd.Context()); err != nil {
		return nil, err
	}
	return appInstance, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
