package execshell_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/monorun/internal/execshell"
	"github.com/tyemirov/monorun/internal/exitcode"
)

const (
	captureSubtestNameTemplateConstant     = "%d_%s"
	captureCaseSuccessStaysQuietName       = "successful_run_prints_nothing"
	captureCaseNonzeroStatusPrintsName     = "nonzero_status_prints_combined_output"
	captureCaseFailurePrintsName           = "failed_run_prints_combined_output"
	captureCaseDebugLevelPrintsName        = "debug_log_level_prints_combined_output"
	captureCaseCustomPredicateVetoName     = "custom_predicate_suppresses_output"
	testCombinedTranscriptConstant         = "stdout line\nstderr line\n"
	testCapturedStandardOutputConstant     = "stdout line\n"
	testCapturedStandardErrorConstant      = "stderr line\n"
	captureTestToolNameConstant            = "buildtool"
	captureRejectedExitCodeConstant        = 9
	captureAcceptedNonzeroExitCodeConstant = 6
)

func newCaptureLogger(level zapcore.Level) *zap.Logger {
	observedCore, _ := observer.New(level)
	return zap.New(observedCore)
}

func TestConditionalRunOutputDecision(testInstance *testing.T) {
	testCases := []struct {
		name           string
		loggerLevel    zapcore.Level
		exitPolicy     execshell.ExitPolicy
		reportedResult execshell.ExecutionResult
		predicate      execshell.OutputPredicate
		expectError    bool
		expectOutput   bool
	}{
		{
			name:           captureCaseSuccessStaysQuietName,
			loggerLevel:    zapcore.InfoLevel,
			exitPolicy:     execshell.AllowListExitPolicy(0),
			reportedResult: execshell.ExecutionResult{ExitCode: 0, CombinedOutput: testCombinedTranscriptConstant},
			expectError:    false,
			expectOutput:   false,
		},
		{
			name:           captureCaseNonzeroStatusPrintsName,
			loggerLevel:    zapcore.InfoLevel,
			exitPolicy:     execshell.AnyExitPolicy(),
			reportedResult: execshell.ExecutionResult{ExitCode: captureAcceptedNonzeroExitCodeConstant, CombinedOutput: testCombinedTranscriptConstant},
			expectError:    false,
			expectOutput:   true,
		},
		{
			name:           captureCaseFailurePrintsName,
			loggerLevel:    zapcore.InfoLevel,
			exitPolicy:     execshell.AllowListExitPolicy(0),
			reportedResult: execshell.ExecutionResult{ExitCode: captureRejectedExitCodeConstant, CombinedOutput: testCombinedTranscriptConstant},
			expectError:    true,
			expectOutput:   true,
		},
		{
			name:           captureCaseDebugLevelPrintsName,
			loggerLevel:    zapcore.DebugLevel,
			exitPolicy:     execshell.AllowListExitPolicy(0),
			reportedResult: execshell.ExecutionResult{ExitCode: 0, CombinedOutput: testCombinedTranscriptConstant},
			expectError:    false,
			expectOutput:   true,
		},
		{
			name:           captureCaseCustomPredicateVetoName,
			loggerLevel:    zapcore.InfoLevel,
			exitPolicy:     execshell.AllowListExitPolicy(0),
			reportedResult: execshell.ExecutionResult{ExitCode: captureRejectedExitCodeConstant, CombinedOutput: testCombinedTranscriptConstant},
			predicate: func(execshell.ExecutionResult, error) bool {
				return false
			},
			expectError:  true,
			expectOutput: false,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(captureSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			logger := newCaptureLogger(testCase.loggerLevel)
			runner := &scriptedCommandRunner{result: testCase.reportedResult}
			executor, executorError := execshell.NewShellExecutor(logger, runner, exitcode.NewRegistry())
			require.NoError(testInstance, executorError)

			var errorOutput bytes.Buffer
			capturing, capturingError := execshell.NewCapturingExecutor(executor, logger, &errorOutput)
			require.NoError(testInstance, capturingError)

			result, runError := capturing.ConditionalRun(context.Background(), execshell.ShellCommand{
				Name:    captureTestToolNameConstant,
				Details: execshell.CommandDetails{ExitPolicy: testCase.exitPolicy},
			}, testCase.predicate)

			if testCase.expectError {
				require.Error(testInstance, runError)
			} else {
				require.NoError(testInstance, runError)
			}

			require.Equal(testInstance, testCase.reportedResult.CombinedOutput, result.CombinedOutput)

			if testCase.expectOutput {
				require.Equal(testInstance, testCase.reportedResult.CombinedOutput, errorOutput.String())
			} else {
				require.Empty(testInstance, errorOutput.String())
			}
		})
	}
}

func TestCaptureRunSelectsBothStreamsByDefault(testInstance *testing.T) {
	runner := &scriptedCommandRunner{result: execshell.ExecutionResult{ExitCode: 0}}
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), runner, exitcode.NewRegistry())
	require.NoError(testInstance, executorError)

	capturing, capturingError := execshell.NewCapturingExecutor(executor, zap.NewNop(), &bytes.Buffer{})
	require.NoError(testInstance, capturingError)

	_, runError := capturing.CaptureRun(context.Background(), execshell.ShellCommand{Name: captureTestToolNameConstant})
	require.NoError(testInstance, runError)

	require.Len(testInstance, runner.executedCommands, 1)
	selection := runner.executedCommands[0].Details.OutputStreams
	require.True(testInstance, selection.CaptureStandardOutput)
	require.True(testInstance, selection.CaptureStandardError)
}

func TestCaptureRunPreservesExplicitStreamSelection(testInstance *testing.T) {
	runner := &scriptedCommandRunner{result: execshell.ExecutionResult{ExitCode: 0}}
	executor, executorError := execshell.NewShellExecutor(zap.NewNop(), runner, exitcode.NewRegistry())
	require.NoError(testInstance, executorError)

	capturing, capturingError := execshell.NewCapturingExecutor(executor, zap.NewNop(), &bytes.Buffer{})
	require.NoError(testInstance, capturingError)

	_, runError := capturing.CaptureRun(context.Background(), execshell.ShellCommand{
		Name:    captureTestToolNameConstant,
		Details: execshell.CommandDetails{OutputStreams: execshell.OutputStreamSelection{CaptureStandardError: true}},
	})
	require.NoError(testInstance, runError)

	require.Len(testInstance, runner.executedCommands, 1)
	selection := runner.executedCommands[0].Details.OutputStreams
	require.False(testInstance, selection.CaptureStandardOutput)
	require.True(testInstance, selection.CaptureStandardError)
}
