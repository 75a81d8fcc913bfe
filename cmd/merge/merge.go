// Package merge implements the merge command: apply a validation checkpoint
// and fold the accepted observatories into the durable output file.
package merge

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/cmd/common"
	"github.com/adiazpar/starview-agent/internal/checkpoint"
	"github.com/adiazpar/starview-agent/internal/pipeline"
)

// Command returns the merge command.
func Command() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "merge <checkpoint>",
		Short: "Merge a validation checkpoint into the durable output",
		Long: `Normalizes the given checkpoint, resolves accepted slugs against the
discovery workspace, and appends the results to
validated_observatories.json. Rejected and unknown slugs are skipped;
re-running the same checkpoint adds nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading checkpoint %s: %w", args[0], err)
			}

			cp, err := checkpoint.Normalize(json.RawMessage(raw), batch)
			if err != nil {
				return err
			}

			p := pipeline.New(deps.Store, nil, nil, deps.Logger)
			validated, err := p.ApplyCheckpoint(cp)
			if err != nil {
				return err
			}

			result, err := p.Merge(validated)
			if err != nil {
				return err
			}

			fmt.Printf("Merged %d new observatories (%d total validated)\n",
				result.Added, result.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 1, "batch number recorded in the normalized checkpoint")
	return cmd
}
