// Package checkpoint implements the checkpoint command: normalize
// validation checkpoint files into the canonical shape.
package checkpoint

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/internal/checkpoint"
)

// Command returns the checkpoint command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage validation checkpoint files",
	}

	cmd.AddCommand(normalizeCommand())
	return cmd
}

func normalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <path> <batch>",
		Short: "Rewrite a checkpoint file in canonical form",
		Long: `Validation runs have produced checkpoints in several shapes over time.
This command rewrites any recognized shape in place as the canonical
{batch_num, validated, websites_found, rejection_notes} structure.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			batch, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid batch number %q: %w", args[1], err)
			}

			cp, err := checkpoint.NormalizeFile(args[0], batch)
			if err != nil {
				return err
			}

			msg := fmt.Sprintf("Normalized: %d observatories, %d websites found",
				len(cp.Validated), len(cp.WebsitesFound))
			if len(cp.RejectionNotes) > 0 {
				msg += fmt.Sprintf(", %d rejection notes", len(cp.RejectionNotes))
			}
			fmt.Println(msg)
			return nil
		},
	}
}
