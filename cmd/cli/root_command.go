package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tyemirov/monorun/internal/rootfind"
)

const (
	rootCommandUseNameConstant          = "root"
	rootCommandShortDescriptionConstant = "Print the resolved monorepo root"
	rootCommandLongDescriptionConstant  = "root walks the ancestor directories of the working directory, preferring the nearest one carrying a root marker, and prints the winner."
)

func (application *Application) newRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           rootCommandUseNameConstant,
		Short:         rootCommandShortDescriptionConstant,
		Long:          rootCommandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			workingDirectory, workingDirectoryError := os.Getwd()
			if workingDirectoryError != nil {
				return fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
			}

			rootResolver := rootfind.NewResolver(nil, application.logger)
			monorepoRoot, rootFound := rootResolver.Resolve(command.Context(), rootfind.AncestorGroups(workingDirectory))
			if !rootFound {
				return ErrMonorepoRootNotFound
			}

			fmt.Fprintln(command.OutOrStdout(), monorepoRoot)
			return nil
		},
	}
}
