package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pagebuilder/internal/app"
	"pagebuilder/internal/render"
	"pagebuilder/internal/validation"
)

var (
	renderPreview bool
	renderOut     string
)

var pageCmd = &cobra.Command{
	Use:   "page",
	Short: "Render, validate or publish one page",
}

var pageRenderCmd = &cobra.Command{
	Use:   "render [page-id]",
	Short: "Render a page to HTML",
	Long: `Renders every section of the page in order. A section that fails to
render is replaced by an error card; the other sections are unaffected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if _, err := a.OpenPage(cmd.Context(), args[0]); err != nil {
				return err
			}
			html, err := a.PageHTML(renderPreview)
			if err != nil {
				return err
			}
			if renderOut == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
				return err
			}
			return os.WriteFile(renderOut, []byte(html), 0644)
		})
	},
}

var pageValidateCmd = &cobra.Command{
	Use:   "validate [page-id]",
	Short: "Report field errors in every section of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			secs, err := a.OpenPage(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, s := range secs {
				errs := validation.Validate(s)
				if len(errs) == 0 {
					continue
				}
				failed++
				fmt.Fprintf(out, "%s (%s)\n", render.ComponentName(s.Type), s.ID)
				for _, e := range errs {
					fmt.Fprintf(out, "  %s: %s\n", e.Field, e.Message)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d sections have errors", failed, len(secs))
			}
			fmt.Fprintf(out, "%d sections OK\n", len(secs))
			return nil
		})
	},
}

var pagePublishCmd = &cobra.Command{
	Use:   "publish [page-id]",
	Short: "Publish a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			if _, err := a.OpenPage(cmd.Context(), args[0]); err != nil {
				return err
			}
			p, err := a.PublishPage(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s at /%s\n", p.ID, p.Slug)
			return nil
		})
	},
}

func init() {
	pageRenderCmd.Flags().BoolVar(&renderPreview, "preview", false, "Render the editor preview")
	pageRenderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write HTML to a file instead of stdout")

	pageCmd.AddCommand(pageRenderCmd)
	pageCmd.AddCommand(pageValidateCmd)
	pageCmd.AddCommand(pagePublishCmd)
}
