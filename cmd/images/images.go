// Package images implements the images command: download and compress
// candidate photos for every discovered observatory.
package images

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/cmd/common"
	"github.com/adiazpar/starview-agent/internal/commons"
	"github.com/adiazpar/starview-agent/internal/images"
	"github.com/adiazpar/starview-agent/internal/pipeline"
)

// Command returns the images command.
func Command() *cobra.Command {
	var noFallback bool

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Download candidate images for discovered observatories",
		Long: `Fetches each observatory's primary image, falling back to a Wikimedia
Commons search when more candidates are needed. Downloads are paced with
batch breaks and a global cooldown on rate limiting; images are re-encoded
as bounded JPEGs.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			limiter := images.NewRateLimiter(deps.Config.Images, deps.Logger)

			var search images.Searcher
			if !noFallback {
				search = commons.New(deps.Config.Commons, deps.Logger)
			}
			downloader := images.NewDownloader(deps.Config.Images, limiter, search, deps.Logger)

			p := pipeline.New(deps.Store, nil, nil, deps.Logger)
			result, err := p.DownloadImages(cmd.Context(), downloader, deps.Config.Paths.ObservatoryDir)
			if err != nil {
				return err
			}

			fmt.Printf("Images: %d observatories downloaded, %d skipped\n",
				result.Downloaded, result.Skipped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noFallback, "no-fallback", false, "disable Wikimedia Commons fallback search")
	return cmd
}
