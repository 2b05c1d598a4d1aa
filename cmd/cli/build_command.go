package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tyemirov/monorun/internal/execshell"
	"github.com/tyemirov/monorun/internal/manifest"
	"github.com/tyemirov/monorun/internal/rootfind"
	"github.com/tyemirov/monorun/pkg/taskrunner"
)

const (
	buildCommandUseNameConstant                  = "build"
	buildCommandShortDescriptionConstant         = "Run the configured build tasks across the monorepo"
	buildCommandLongDescriptionConstant          = "build resolves the monorepo root and runs the configured lint, build, and test commands concurrently, followed by the post-processing commands once the first phase settles."
	monorepoRootNotFoundMessageConstant          = "monorepo root not found"
	workingDirectoryErrorTemplateConstant        = "unable to determine working directory: %w"
	toolCommandMissingExecutableTemplateConstant = "tool %q has no command configured"
)

// ErrMonorepoRootNotFound indicates no ancestor directory carried a root marker.
var ErrMonorepoRootNotFound = errors.New(monorepoRootNotFoundMessageConstant)

func (application *Application) newBuildCommand() *cobra.Command {
	return &cobra.Command{
		Use:           buildCommandUseNameConstant,
		Short:         buildCommandShortDescriptionConstant,
		Long:          buildCommandLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runBuildCommand(command)
		},
	}
}

func (application *Application) runBuildCommand(command *cobra.Command) error {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return fmt.Errorf(workingDirectoryErrorTemplateConstant, workingDirectoryError)
	}

	rootResolver := rootfind.NewResolver(nil, application.logger)
	monorepoRoot, rootFound := rootResolver.Resolve(command.Context(), rootfind.AncestorGroups(workingDirectory))
	if !rootFound {
		return ErrMonorepoRootNotFound
	}

	shellExecutor, executorError := execshell.NewShellExecutor(application.logger, execshell.NewOSCommandRunner(), nil)
	if executorError != nil {
		return executorError
	}

	capturingExecutor, capturingError := execshell.NewCapturingExecutor(shellExecutor, application.logger, command.ErrOrStderr())
	if capturingError != nil {
		return capturingError
	}

	buildTasks, taskBuildError := buildToolTasks(application.configuration.Build.Tools, capturingExecutor, monorepoRoot)
	if taskBuildError != nil {
		return taskBuildError
	}

	pipelineRunner, runnerError := taskrunner.NewRunner(application.logger, nil, manifest.NewModuleReader(), workingDirectory)
	if runnerError != nil {
		return runnerError
	}

	pipelineRunner.Run(command.Context(), buildTasks...)
	return nil
}

// toolTaskExecutor is the execution surface a tool task drives.
type toolTaskExecutor interface {
	ConditionalRun(executionContext context.Context, command execshell.ShellCommand, shouldOutput execshell.OutputPredicate) (execshell.ExecutionResult, error)
}

func buildToolTasks(configuredTools []ToolCommandConfiguration, executor toolTaskExecutor, monorepoRoot string) ([]taskrunner.Task, error) {
	toolTasks := make([]taskrunner.Task, 0, len(configuredTools))
	for _, configuredTool := range configuredTools {
		if len(configuredTool.Command) == 0 {
			return nil, fmt.Errorf(toolCommandMissingExecutableTemplateConstant, configuredTool.Name)
		}

		exitPolicy := execshell.AllowListExitPolicy(0)
		if configuredTool.Passthrough {
			exitPolicy = execshell.InheritExitPolicy()
		}

		shellCommand := execshell.ShellCommand{
			Name: execshell.CommandName(configuredTool.Command[0]),
			Details: execshell.CommandDetails{
				Arguments:        append([]string(nil), configuredTool.Command[1:]...),
				WorkingDirectory: monorepoRoot,
				ExitPolicy:       exitPolicy,
				OutputStreams:    execshell.AllOutputStreams(),
			},
		}

		toolTasks = append(toolTasks, taskrunner.Task{
			Name: configuredTool.Name,
			Execute: func(executionContext context.Context) error {
				_, runError := executor.ConditionalRun(executionContext, shellCommand, nil)
				return runError
			},
		})
	}
	return toolTasks, nil
}
