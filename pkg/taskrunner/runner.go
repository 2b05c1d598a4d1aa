package taskrunner

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/tyemirov/monorun/internal/exitcode"
)

const (
	runnerLoggerMissingMessageConstant  = "task runner logger not configured"
	taskDroppedMessageConstant          = "task name not recognized; dropping"
	taskFailureMessageConstant          = "task failed"
	phaseSettledMessageConstant         = "task phase settled"
	pipelineCompletedMessageConstant    = "task pipeline completed"
	taskNameFieldConstant               = "task"
	packageNameFieldConstant            = "package"
	phaseNameFieldConstant              = "phase"
	taskCountFieldConstant              = "task_count"
	failureCountFieldConstant           = "failure_count"
	durationFieldConstant               = "duration"
	pipelineFailureExitCodeConstant     = 1
	unresolvedPackageNameConstant       = "unknown"
)

// ErrRunnerLoggerMissing indicates the logger dependency was not provided.
var ErrRunnerLoggerMissing = errors.New(runnerLoggerMissingMessageConstant)

// PackageNameResolver names the package a pipeline run operates on; the name
// decorates task failure diagnostics.
type PackageNameResolver interface {
	PackageName(manifestDirectory string) string
}

// Runner executes declared build tasks with phase-ordered concurrency.
type Runner struct {
	logger           *zap.Logger
	exitRegistry     *exitcode.Registry
	packageNames     PackageNameResolver
	workingDirectory string
}

// NewRunner constructs a pipeline runner. The exit registry may be nil, in
// which case the process-wide registry is used; the package name resolver may
// be nil, in which case failures are decorated with a placeholder name.
func NewRunner(logger *zap.Logger, exitRegistry *exitcode.Registry, packageNames PackageNameResolver, workingDirectory string) (*Runner, error) {
	if logger == nil {
		return nil, ErrRunnerLoggerMissing
	}
	if exitRegistry == nil {
		exitRegistry = exitcode.Shared()
	}
	return &Runner{
		logger:           logger,
		exitRegistry:     exitRegistry,
		packageNames:     packageNames,
		workingDirectory: workingDirectory,
	}, nil
}

// Run partitions the declared tasks, executes the main and custom tasks
// concurrently, then the post tasks, and raises the shared exit status when
// either phase failed. Post tasks always run, whatever the first phase did,
// and a failing task never prevents its phase siblings from settling.
func (runner *Runner) Run(executionContext context.Context, tasks ...Task) {
	pipelineStart := time.Now()
	defer func() {
		runner.logger.Info(pipelineCompletedMessageConstant,
			zap.Duration(durationFieldConstant, time.Since(pipelineStart)),
		)
	}()

	partition := partitionTasks(tasks)
	for _, droppedTask := range partition.dropped {
		runner.logger.Debug(taskDroppedMessageConstant, zap.String(taskNameFieldConstant, droppedTask.Name))
	}

	firstPhaseFailure := runner.runPhase(executionContext, TaskPhaseMain, partition.firstPhaseTasks())
	postPhaseFailure := runner.runPhase(executionContext, TaskPhasePost, partition.postTasks)

	if firstPhaseFailure != nil || postPhaseFailure != nil {
		runner.exitRegistry.RaiseAtLeast(pipelineFailureExitCodeConstant)
	}
}

// runPhase executes every task of one phase concurrently and waits for all of
// them to settle before reporting the aggregate outcome. There is no early
// abort: a failing task only contributes to the aggregate.
func (runner *Runner) runPhase(executionContext context.Context, phase TaskPhase, phaseTasks []Task) error {
	if len(phaseTasks) == 0 {
		return nil
	}

	phaseStart := time.Now()

	var failureMutex sync.Mutex
	var aggregateFailure *multierror.Error

	var waitGroup sync.WaitGroup
	for _, phaseTask := range phaseTasks {
		waitGroup.Add(1)
		go func(executedTask Task) {
			defer waitGroup.Done()

			executionError := runner.executeOne(executionContext, executedTask)
			if executionError == nil {
				return
			}

			failureMutex.Lock()
			aggregateFailure = multierror.Append(aggregateFailure, executionError)
			failureMutex.Unlock()
		}(phaseTask)
	}
	waitGroup.Wait()

	failureCount := 0
	if aggregateFailure != nil {
		failureCount = len(aggregateFailure.Errors)
	}

	runner.logger.Info(phaseSettledMessageConstant,
		zap.String(phaseNameFieldConstant, string(phase)),
		zap.Int(taskCountFieldConstant, len(phaseTasks)),
		zap.Int(failureCountFieldConstant, failureCount),
		zap.Duration(durationFieldConstant, time.Since(phaseStart)),
	)

	return aggregateFailure.ErrorOrNil()
}

// executeOne invokes a single task, logging failures with the task name and
// the current package. Logging never swallows the failure; the original error
// is handed back for phase aggregation.
func (runner *Runner) executeOne(executionContext context.Context, executedTask Task) error {
	executionError := executedTask.Execute(executionContext)
	if executionError == nil {
		return nil
	}

	runner.logger.Error(taskFailureMessageConstant,
		zap.String(taskNameFieldConstant, executedTask.label()),
		zap.String(packageNameFieldConstant, runner.currentPackageName()),
		zap.Error(executionError),
	)
	return executionError
}

func (runner *Runner) currentPackageName() string {
	if runner.packageNames == nil {
		return unresolvedPackageNameConstant
	}
	return runner.packageNames.PackageName(runner.workingDirectory)
}
