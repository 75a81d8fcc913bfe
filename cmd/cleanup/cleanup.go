// Package cleanup implements the cleanup command: remove the transient temp
// workspace while leaving the durable output untouched.
package cleanup

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adiazpar/starview-agent/cmd/common"
)

// Command returns the cleanup command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the temp workspace (discovered.json and downloaded images)",
		RunE: func(_ *cobra.Command, _ []string) error {
			deps, err := common.BuildDeps()
			if err != nil {
				return err
			}

			if err := deps.Store.Cleanup(); err != nil {
				return err
			}

			fmt.Println("Temp workspace removed.")
			return nil
		},
	}
}
