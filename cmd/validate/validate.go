// Package validate implements the validate command: re-run website checks
// over discovered observatories and list entries pending image review.
package validate

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/cmd/common"
	"github.com/adiazpar/starview-agent/internal/pipeline"
	"github.com/adiazpar/starview-agent/internal/urlcheck"
)

// Command returns the validate command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate websites and list pending image reviews",
	}

	cmd.AddCommand(urlsCommand())
	cmd.AddCommand(pendingCommand())
	return cmd
}

func urlsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "urls",
		Short: "Check discovered observatory websites for dead links and soft 404s",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			validator := urlcheck.New(deps.Config.URLCheck, deps.Logger)
			p := pipeline.New(deps.Store, nil, validator, deps.Logger)

			result, err := p.ValidateURLs(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("Websites: %d valid, %d removed, %d absent\n",
				result.Valid, result.Invalid, result.NoURL)
			return nil
		},
	}
}

func pendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List observatories with downloaded images awaiting review",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			pending, err := deps.Store.PendingValidations()
			if err != nil {
				return err
			}
			if len(pending) == 0 {
				fmt.Println("Nothing pending review.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Slug", "Name", "Images"})
			for _, p := range pending {
				t.AppendRow(table.Row{p.Slug, p.Name, p.ImageCount})
			}
			t.Render()
			return nil
		},
	}
}
