// Package taskrunner executes a declared set of build tasks in two
// concurrency phases. Main and custom tasks run together first; post tasks
// start only after every earlier task has settled, and they run even when the
// first phase failed. A failing phase raises the shared exit status registry
// instead of aborting sibling tasks.
package taskrunner
