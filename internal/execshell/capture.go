package execshell

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// OutputPredicate decides, after the run settled, whether the captured
// combined output should be surfaced on the error writer.
type OutputPredicate func(result ExecutionResult, runError error) bool

// commandExecutor is the delegated execution surface of the capturing decorator.
type commandExecutor interface {
	Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CapturingExecutor decorates a shell executor with buffered output streams
// and a post-hoc decision about whether to surface them. All failures come
// from the delegated executor; the decorator never fails on its own account.
type CapturingExecutor struct {
	delegate    commandExecutor
	logger      *zap.Logger
	errorWriter io.Writer
}

// NewCapturingExecutor builds the decorator around the provided executor. The
// error writer receives the combined transcript when the predicate approves.
func NewCapturingExecutor(delegate commandExecutor, logger *zap.Logger, errorWriter io.Writer) (*CapturingExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if delegate == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &CapturingExecutor{delegate: delegate, logger: logger, errorWriter: errorWriter}, nil
}

// CaptureRun executes the command with both output streams buffered unless the
// command already selected a subset, and returns the settled result.
func (capturing *CapturingExecutor) CaptureRun(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if !command.Details.OutputStreams.CaptureStandardOutput && !command.Details.OutputStreams.CaptureStandardError {
		command.Details.OutputStreams = AllOutputStreams()
	}
	return capturing.delegate.Execute(executionContext, command)
}

// ConditionalRun executes the command via CaptureRun, then surfaces the
// combined output on the error writer when the predicate approves. The
// delegated failure, when present, is returned after the possible print.
func (capturing *CapturingExecutor) ConditionalRun(executionContext context.Context, command ShellCommand, shouldOutput OutputPredicate) (ExecutionResult, error) {
	executionResult, runError := capturing.CaptureRun(executionContext, command)

	if shouldOutput == nil {
		shouldOutput = capturing.defaultOutputPredicate
	}

	if shouldOutput(executionResult, runError) && capturing.errorWriter != nil && len(executionResult.CombinedOutput) > 0 {
		fmt.Fprint(capturing.errorWriter, executionResult.CombinedOutput)
	}

	return executionResult, runError
}

// defaultOutputPredicate surfaces output for failed runs, non-zero exit
// statuses, and whenever the ambient log level is debug.
func (capturing *CapturingExecutor) defaultOutputPredicate(result ExecutionResult, runError error) bool {
	if runError != nil {
		return true
	}
	if result.ExitCode != 0 {
		return true
	}
	return capturing.logger.Core().Enabled(zapcore.DebugLevel)
}
