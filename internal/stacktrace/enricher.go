// Package stacktrace restores caller context to errors raised on the far side
// of an asynchronous boundary. An Enricher snapshots the caller's stack when
// constructed; applying it to an error later produces a value whose formatted
// trace combines the error's own trace sections with the snapshot.
package stacktrace

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	enricherInternalFrameSkipCountConstant = 2
	capturedFrameCapacityConstant          = 32
	frameLineTemplateConstant              = "\t%s\n\t\t%s:%d"
	headerTemplateConstant                 = "%s: %s"
	unnamedErrorLabelConstant              = "error"
)

// Enricher re-attaches a previously captured stack snapshot to errors.
type Enricher struct {
	capturedTrace string
}

// Capture snapshots the current goroutine stack, skipping the requested number
// of caller frames beyond the capture plumbing itself. Capture must run
// synchronously at the start of the instrumented operation; capturing inside a
// completion callback records the plumbing's frames instead of the caller's.
func Capture(skipFrames int) Enricher {
	programCounters := make([]uintptr, capturedFrameCapacityConstant)
	frameCount := runtime.Callers(enricherInternalFrameSkipCountConstant+skipFrames, programCounters)
	frames := runtime.CallersFrames(programCounters[:frameCount])

	var traceBuilder strings.Builder
	for {
		frame, moreFramesAvailable := frames.Next()
		if len(frame.Function) > 0 {
			if traceBuilder.Len() > 0 {
				traceBuilder.WriteByte('\n')
			}
			fmt.Fprintf(&traceBuilder, frameLineTemplateConstant, frame.Function, frame.File, frame.Line)
		}
		if !moreFramesAvailable {
			break
		}
	}

	return Enricher{capturedTrace: traceBuilder.String()}
}

// Enrich annotates the provided error with the captured snapshot. The error's
// message is preserved verbatim. Applying enrichment to an already annotated
// error appends a further trace section rather than replacing the existing
// ones; the repetition is accepted as the cost of never losing a section.
func (enricher Enricher) Enrich(annotatedError error) error {
	if annotatedError == nil {
		return nil
	}

	if existing, alreadyAnnotated := annotatedError.(*AnnotatedError); alreadyAnnotated {
		combinedSections := make([]string, 0, len(existing.TraceSections)+1)
		combinedSections = append(combinedSections, existing.TraceSections...)
		combinedSections = append(combinedSections, enricher.capturedTrace)
		return &AnnotatedError{cause: existing.cause, TraceSections: combinedSections}
	}

	return &AnnotatedError{cause: annotatedError, TraceSections: []string{enricher.capturedTrace}}
}

// AnnotatedError carries an underlying error together with the appended stack
// trace sections collected by one or more enrichments.
type AnnotatedError struct {
	cause         error
	TraceSections []string
}

// Error reports the underlying error message unchanged.
func (annotated *AnnotatedError) Error() string {
	return annotated.cause.Error()
}

// Unwrap exposes the underlying error.
func (annotated *AnnotatedError) Unwrap() error {
	return annotated.cause
}

// FormattedStack renders the header line followed by every trace section in
// application order.
func (annotated *AnnotatedError) FormattedStack() string {
	var stackBuilder strings.Builder
	fmt.Fprintf(&stackBuilder, headerTemplateConstant, errorLabel(annotated.cause), annotated.cause.Error())
	for _, traceSection := range annotated.TraceSections {
		stackBuilder.WriteByte('\n')
		stackBuilder.WriteString(traceSection)
	}
	return stackBuilder.String()
}

func errorLabel(labeledError error) string {
	type namedError interface{ Name() string }
	if named, hasName := labeledError.(namedError); hasName {
		trimmedName := strings.TrimSpace(named.Name())
		if len(trimmedName) > 0 {
			return trimmedName
		}
	}
	return unnamedErrorLabelConstant
}
