// Package discover implements the discover command: query Wikidata for
// observatories, dedupe against the durable output, and validate websites
// for the survivors.
package discover

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/cmd/common"
	"github.com/adiazpar/starview-agent/internal/domain"
	"github.com/adiazpar/starview-agent/internal/pipeline"
	"github.com/adiazpar/starview-agent/internal/urlcheck"
	"github.com/adiazpar/starview-agent/internal/wikidata"
)

// Command returns the discover command.
func Command() *cobra.Command {
	var (
		limit        int
		offset       int
		minElevation float64
		country      string
		skipURLs     bool
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Discover observatories from Wikidata",
		Long: `Queries Wikidata for observatories with images, removes entries that are
already validated, and checks websites for the remainder. Results land in
the temp workspace ready for image download.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			query := wikidata.Query{
				Limit:        limit,
				Offset:       offset,
				RequireImage: true,
				Country:      country,
			}
			if cmd.Flags().Changed("min-elevation") {
				query.MinElevation = &minElevation
			}

			return run(cmd.Context(), deps, query, skipURLs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "max observatories to discover")
	cmd.Flags().IntVar(&offset, "offset", 0, "skip first N observatories (pagination)")
	cmd.Flags().Float64Var(&minElevation, "min-elevation", 0, "filter by minimum elevation in meters")
	cmd.Flags().StringVar(&country, "country", "", "filter by country name")
	cmd.Flags().BoolVar(&skipURLs, "skip-url-validation", false, "skip website validation after dedupe")

	return cmd
}

func run(ctx context.Context, deps *common.CommandDeps, query wikidata.Query, skipURLs bool) error {
	discoverer := wikidata.New(deps.Config.Wikidata, deps.Logger)
	validator := urlcheck.New(deps.Config.URLCheck, deps.Logger)
	p := pipeline.New(deps.Store, discoverer, validator, deps.Logger)

	discovered, err := p.Discover(ctx, query)
	if err != nil {
		return err
	}
	if discovered.TotalInWikidata >= 0 {
		fmt.Printf("Total observatories in Wikidata: %d\n", discovered.TotalInWikidata)
	}
	renderEntries(discovered.Entries)

	deduped, err := p.Dedupe()
	if err != nil {
		return err
	}
	fmt.Printf("Duplicates removed: %d (kept %d of %d)\n",
		len(deduped.Duplicates), len(deduped.Kept), deduped.OriginalCount)

	if len(deduped.Kept) == 0 {
		fmt.Println("No new observatories to process.")
		return nil
	}

	if skipURLs {
		return nil
	}

	checked, err := p.ValidateURLs(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Websites: %d valid, %d removed, %d absent\n",
		checked.Valid, checked.Invalid, checked.NoURL)
	return nil
}

// renderEntries displays discovered observatories in a table.
func renderEntries(entries []domain.DiscoveredEntry) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Latitude", "Longitude", "Image", "Website"})

	for i, e := range entries {
		website := ""
		if e.TypeMetadata != nil {
			website = e.TypeMetadata.Website
		}
		hasImage := "no"
		if e.ImageURL != "" {
			hasImage = "yes"
		}
		t.AppendRow(table.Row{
			i + 1,
			e.Name,
			fmt.Sprintf("%.4f", e.Latitude),
			fmt.Sprintf("%.4f", e.Longitude),
			hasImage,
			website,
		})
	}

	t.Render()
}
