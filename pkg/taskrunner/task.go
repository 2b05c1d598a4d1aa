package taskrunner

import "context"

const (
	lintTaskNameConstant         = "lint"
	buildTaskNameConstant        = "build"
	testTaskNameConstant         = "test"
	declarationsTaskNameConstant = "declarations"
	integrationTaskNameConstant  = "integration"
	copyTaskNameConstant         = "copy"
	customTaskLabelConstant      = "custom"
)

// Task pairs a task name with its executable body. An empty name marks a
// custom task, which always runs in the first phase.
type Task struct {
	Name    string
	Execute func(executionContext context.Context) error
}

// CustomTask wraps a bare function as an unnamed first-phase task.
func CustomTask(execute func(executionContext context.Context) error) Task {
	return Task{Execute: execute}
}

// label returns the task name used in diagnostics.
func (task Task) label() string {
	if len(task.Name) == 0 {
		return customTaskLabelConstant
	}
	return task.Name
}

// TaskPhase names the concurrency group a task is classified into.
type TaskPhase string

// Pipeline phases.
const (
	TaskPhaseMain    TaskPhase = "main"
	TaskPhaseCustom  TaskPhase = "custom"
	TaskPhasePost    TaskPhase = "post"
	TaskPhaseDropped TaskPhase = "dropped"
)

var mainPhaseTaskNames = map[string]struct{}{
	lintTaskNameConstant:         {},
	buildTaskNameConstant:        {},
	testTaskNameConstant:         {},
	declarationsTaskNameConstant: {},
	integrationTaskNameConstant:  {},
}

var postPhaseTaskNames = map[string]struct{}{
	copyTaskNameConstant: {},
}

// ClassifyTask assigns a task to its phase purely from its name: unnamed
// tasks are custom, recognized names map to the fixed main and post sets, and
// every other named task is dropped.
func ClassifyTask(task Task) TaskPhase {
	if len(task.Name) == 0 {
		return TaskPhaseCustom
	}
	if _, isMainTask := mainPhaseTaskNames[task.Name]; isMainTask {
		return TaskPhaseMain
	}
	if _, isPostTask := postPhaseTaskNames[task.Name]; isPostTask {
		return TaskPhasePost
	}
	return TaskPhaseDropped
}

// taskPartition groups the declared tasks by phase for one pipeline run.
type taskPartition struct {
	mainTasks   []Task
	customTasks []Task
	postTasks   []Task
	dropped     []Task
}

func partitionTasks(tasks []Task) taskPartition {
	partition := taskPartition{}
	for _, declaredTask := range tasks {
		switch ClassifyTask(declaredTask) {
		case TaskPhaseMain:
			partition.mainTasks = append(partition.mainTasks, declaredTask)
		case TaskPhaseCustom:
			partition.customTasks = append(partition.customTasks, declaredTask)
		case TaskPhasePost:
			partition.postTasks = append(partition.postTasks, declaredTask)
		default:
			partition.dropped = append(partition.dropped, declaredTask)
		}
	}
	return partition
}

// firstPhaseTasks returns the combined main and custom task list.
func (partition taskPartition) firstPhaseTasks() []Task {
	combined := make([]Task, 0, len(partition.mainTasks)+len(partition.customTasks))
	combined = append(combined, partition.mainTasks...)
	combined = append(combined, partition.customTasks...)
	return combined
}
