package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/site-audit/internal/dom"
	"github.com/JakeFAU/site-audit/internal/pagemap"
)

// newAuditCmd creates the 'audit' subcommand. It validates one saved HTML
// response offline and never opens the site registry.
func newAuditCmd() *cobra.Command {
	var (
		pageURL    string
		mimeType   string
		statusCode int
	)
	cmd := &cobra.Command{
		Use:   "audit FILE",
		Short: "Validate the title, H1 and meta description of a saved HTML page",
		Args:  cobra.ExactArgs(1),
		// Overrides the root hook; audit does not need the App.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open page: %w", err)
			}
			defer f.Close()

			content, err := dom.ParseContentInfo(f)
			if err != nil {
				return err
			}
			if pageURL == "" {
				pageURL = args[0]
			}
			info := pagemap.NewPageInfo(pageURL, mimeType, statusCode, content)
			results := info.ValidateAll()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "URL\t%s\n", info.URL)
			fmt.Fprintf(tw, "Content type\t%s\n", info.BaseContentType)
			fmt.Fprintf(tw, "Response\t%s\n", info.ResponseType)
			for _, area := range pagemap.AllAreas() {
				fmt.Fprintf(tw, "%s\t%s\n", area.Title(), results[area])
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "URL the page was fetched from (defaults to the file path)")
	cmd.Flags().StringVar(&mimeType, "mime", "text/html; charset=utf-8", "Content-Type the server returned")
	cmd.Flags().IntVar(&statusCode, "status", 200, "HTTP status code the server returned")
	return cmd
}
