package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tyemirov/monorun/internal/exitcode"
	"github.com/tyemirov/monorun/internal/stacktrace"
)

const (
	goCommandNameStringConstant               = "go"
	gitCommandNameStringConstant              = "git"
	golangciLintCommandNameStringConstant     = "golangci-lint"
	loggerNotConfiguredMessageConstant        = "shell executor logger not configured"
	commandRunnerNotConfiguredMessageConstant = "shell executor command runner not configured"
	commandNameMissingMessageConstant         = "shell command name not provided"
	commandSpawnMessageConstant               = "spawning command"
	commandSuccessMessageConstant             = "command execution completed"
	commandFailureMessageConstant             = "command exit status rejected"
	commandSignalMessageConstant              = "command terminated by signal"
	commandRunnerErrorMessageConstant         = "command could not be started"
	commandLineFieldNameConstant              = "command_line"
	workingDirectoryFieldNameConstant         = "working_directory"
	exitCodeFieldNameConstant                 = "exit_code"
	exitPolicyFieldNameConstant               = "exit_policy"
	terminatingSignalFieldNameConstant        = "signal"
	commandLineSeparatorConstant              = " "
	missingTerminationStateMessageConstant    = "execshell: runner reported neither an exit status nor a terminating signal"
)

// CommandName identifies an external executable.
type CommandName string

// Well-known command names used by the build tasks.
const (
	CommandGo           CommandName = CommandName(goCommandNameStringConstant)
	CommandGit          CommandName = CommandName(gitCommandNameStringConstant)
	CommandGolangciLint CommandName = CommandName(golangciLintCommandNameStringConstant)
)

// CommandDetails describes command invocation properties. The details are
// resolved once, at the boundary; nothing deeper in the call graph branches on
// how the invocation was originally expressed.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	ExitPolicy           ExitPolicy
	OutputStreams        OutputStreamSelection
}

// ShellCommand represents a fully qualified command invocation.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// CommandLine renders the joined executable name and arguments.
func (command ShellCommand) CommandLine() string {
	segments := append([]string{string(command.Name)}, command.Details.Arguments...)
	return strings.Join(segments, commandLineSeparatorConstant)
}

// ExecutionResult captures observable command results. TerminatingSignal is
// empty on normal termination; ExitCode is meaningless when a signal is set.
type ExecutionResult struct {
	ProcessID         int
	ExitCode          int
	TerminatingSignal string
	StandardOutput    string
	StandardError     string
	CombinedOutput    string
}

// CommandRunner spawns shell commands and reports their raw termination state.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ShellExecutor orchestrates running shell commands, applying the exit policy
// and recording inherited statuses in the shared exit status registry.
type ShellExecutor struct {
	commandRunner CommandRunner
	logger        *zap.Logger
	exitRegistry  *exitcode.Registry
}

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrCommandRunnerNotConfigured indicates the command runner dependency was missing.
	ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)
	// ErrCommandNameMissing indicates the command name was not provided.
	ErrCommandNameMissing = errors.New(commandNameMissingMessageConstant)
)

// CommandStartError wraps operating system failures to launch the executable.
type CommandStartError struct {
	Command ShellCommand
	Cause   error
}

const commandStartErrorMessageTemplateConstant = "unable to start %s"

// Error describes the launch failure.
func (startError CommandStartError) Error() string {
	return fmt.Sprintf(commandStartErrorMessageTemplateConstant, startError.Command.CommandLine())
}

// Unwrap exposes the underlying operating system error.
func (startError CommandStartError) Unwrap() error {
	return startError.Cause
}

// Name labels the failure for stack annotation.
func (startError CommandStartError) Name() string {
	return "CommandStartError"
}

// CommandFailedError reports a command whose numeric termination status was
// rejected by the active exit policy.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

const commandFailedErrorMessageTemplateConstant = "%s exited with code %d"

// Error describes the rejected status with the literal command line.
func (failureError CommandFailedError) Error() string {
	return fmt.Sprintf(commandFailedErrorMessageTemplateConstant, failureError.Command.CommandLine(), failureError.Result.ExitCode)
}

// Name labels the failure for stack annotation.
func (failureError CommandFailedError) Name() string {
	return "CommandFailedError"
}

// SignalTerminatedError reports a command killed by an operating system
// signal; signal termination is a failure under every exit policy.
type SignalTerminatedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

const signalTerminatedErrorMessageTemplateConstant = "%s terminated by signal %s"

// Error describes the terminating signal with the literal command line.
func (signalError SignalTerminatedError) Error() string {
	return fmt.Sprintf(signalTerminatedErrorMessageTemplateConstant, signalError.Command.CommandLine(), signalError.Result.TerminatingSignal)
}

// Name labels the failure for stack annotation.
func (signalError SignalTerminatedError) Name() string {
	return "SignalTerminatedError"
}

// NewShellExecutor builds an executor for the provided runner and logger. The
// exit registry may be nil, in which case the process-wide registry is used.
func NewShellExecutor(logger *zap.Logger, commandRunner CommandRunner, exitRegistry *exitcode.Registry) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if commandRunner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	if exitRegistry == nil {
		exitRegistry = exitcode.Shared()
	}
	return &ShellExecutor{
		commandRunner: commandRunner,
		logger:        logger,
		exitRegistry:  exitRegistry,
	}, nil
}

// Execute runs the provided shell command, interprets its termination state
// under the command's exit policy, and logs lifecycle events.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if len(command.Name) == 0 {
		return ExecutionResult{}, ErrCommandNameMissing
	}

	callerStack := stacktrace.Capture(1)

	executor.logger.Debug(commandSpawnMessageConstant,
		zap.String(commandLineFieldNameConstant, command.CommandLine()),
		zap.String(workingDirectoryFieldNameConstant, command.Details.WorkingDirectory),
		zap.Stringer(exitPolicyFieldNameConstant, command.Details.ExitPolicy),
	)

	executionResult, runnerError := executor.commandRunner.Run(executionContext, command)
	if runnerError != nil {
		executor.logger.Error(commandRunnerErrorMessageConstant,
			zap.String(commandLineFieldNameConstant, command.CommandLine()),
			zap.Error(runnerError),
		)
		return ExecutionResult{}, callerStack.Enrich(CommandStartError{Command: command, Cause: runnerError})
	}

	if len(executionResult.TerminatingSignal) > 0 {
		executor.logger.Warn(commandSignalMessageConstant,
			zap.String(commandLineFieldNameConstant, command.CommandLine()),
			zap.String(terminatingSignalFieldNameConstant, executionResult.TerminatingSignal),
		)
		return executionResult, callerStack.Enrich(SignalTerminatedError{Command: command, Result: executionResult})
	}

	if executionResult.ExitCode < 0 {
		// Reaching this point means the runner violated its contract: every
		// spawned process either exits with a status or dies on a signal.
		panic(missingTerminationStateMessageConstant)
	}

	if !command.Details.ExitPolicy.Accepts(executionResult.ExitCode) {
		executor.logger.Warn(commandFailureMessageConstant,
			zap.String(commandLineFieldNameConstant, command.CommandLine()),
			zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
			zap.Stringer(exitPolicyFieldNameConstant, command.Details.ExitPolicy),
		)
		return executionResult, callerStack.Enrich(CommandFailedError{Command: command, Result: executionResult})
	}

	if command.Details.ExitPolicy.Kind() == ExitPolicyKindInherit {
		executor.exitRegistry.RaiseAtLeast(executionResult.ExitCode)
	}

	executor.logger.Debug(commandSuccessMessageConstant,
		zap.String(commandLineFieldNameConstant, command.CommandLine()),
		zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
	)
	return executionResult, nil
}

// ExecuteGo runs the go toolchain executable with the provided details.
func (executor *ShellExecutor) ExecuteGo(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGo, Details: details})
}

// ExecuteGit runs the git executable with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteLinter runs the configured lint executable with the provided details.
func (executor *ShellExecutor) ExecuteLinter(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGolangciLint, Details: details})
}
