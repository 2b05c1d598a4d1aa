package execshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

const environmentVariableTemplateConstant = "%s=%s"

// streamCapture accumulates one child stream and mirrors every chunk into a
// shared arrival-ordered combined buffer.
type streamCapture struct {
	ordering *combinedCapture
	buffer   strings.Builder
}

// combinedCapture serializes chunk appends from both child streams so the
// combined transcript preserves actual arrival interleaving.
type combinedCapture struct {
	mutex  sync.Mutex
	buffer strings.Builder
}

func (capture *streamCapture) Write(chunk []byte) (int, error) {
	capture.ordering.mutex.Lock()
	defer capture.ordering.mutex.Unlock()

	capture.buffer.Write(chunk)
	capture.ordering.buffer.Write(chunk)
	return len(chunk), nil
}

func (capture *streamCapture) text() string {
	capture.ordering.mutex.Lock()
	defer capture.ordering.mutex.Unlock()

	return capture.buffer.String()
}

func (capture *combinedCapture) text() string {
	capture.mutex.Lock()
	defer capture.mutex.Unlock()

	return capture.buffer.String()
}

// OSCommandRunner spawns commands through the operating system and reports
// their raw termination state. Interpretation of the state is left to the
// shell executor.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs an operating-system-backed command runner.
func NewOSCommandRunner() OSCommandRunner {
	return OSCommandRunner{}
}

// Run launches the command and waits for termination. A non-nil error is
// returned only when the executable could not be launched; rejected exit
// statuses and signal terminations are reported through the result.
func (runner OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executableCommand := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	executableCommand.Dir = command.Details.WorkingDirectory

	if len(command.Details.EnvironmentVariables) > 0 {
		environment := executableCommand.Environ()
		for variableName, variableValue := range command.Details.EnvironmentVariables {
			environment = append(environment, fmt.Sprintf(environmentVariableTemplateConstant, variableName, variableValue))
		}
		executableCommand.Env = environment
	}

	ordering := &combinedCapture{}
	standardOutputCapture := &streamCapture{ordering: ordering}
	standardErrorCapture := &streamCapture{ordering: ordering}

	if command.Details.OutputStreams.CaptureStandardOutput {
		executableCommand.Stdout = standardOutputCapture
	} else {
		executableCommand.Stdout = io.Discard
	}
	if command.Details.OutputStreams.CaptureStandardError {
		executableCommand.Stderr = standardErrorCapture
	} else {
		executableCommand.Stderr = io.Discard
	}

	if startError := executableCommand.Start(); startError != nil {
		return ExecutionResult{}, startError
	}

	executionResult := ExecutionResult{ProcessID: executableCommand.Process.Pid}
	waitError := executableCommand.Wait()

	executionResult.StandardOutput = standardOutputCapture.text()
	executionResult.StandardError = standardErrorCapture.text()
	executionResult.CombinedOutput = ordering.text()

	processState := executableCommand.ProcessState
	if waitError != nil {
		var exitError *exec.ExitError
		if !errors.As(waitError, &exitError) {
			// Wait failed before the process state became available; surface
			// the failure as an unlaunchable command.
			return ExecutionResult{}, waitError
		}
		processState = exitError.ProcessState
	}

	if waitStatus, isWaitStatus := processState.Sys().(syscall.WaitStatus); isWaitStatus && waitStatus.Signaled() {
		executionResult.ExitCode = -1
		executionResult.TerminatingSignal = waitStatus.Signal().String()
		return executionResult, nil
	}

	executionResult.ExitCode = processState.ExitCode()
	return executionResult, nil
}
