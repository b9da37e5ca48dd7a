package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
)

var pagesCmd = &cobra.Command{
	Use:   "pages",
	Short: "List and create pages",
}

var pagesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all pages",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			pages, err := a.ListPages()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tSLUG\tSTATUS")
			for _, p := range pages {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.Slug, p.Status)
			}
			return w.Flush()
		})
	},
}

var pagesCreateCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create an empty draft page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			p, err := a.CreatePage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.ID, p.Slug)
			return nil
		})
	},
}

func init() {
	pagesCmd.AddCommand(pagesListCmd)
	pagesCmd.AddCommand(pagesCreateCmd)
}

// withApp runs fn against a started app without background workers.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c := *cfg
	c.Autosave.Enabled = false
	c.Media.Watch = false

	a := app.New(&c, logger.Named("app"))
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown()
	return fn(a)
}
