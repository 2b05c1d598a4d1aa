// Package rootfind locates the monorepo root by scanning prioritized groups
// of candidate directories for well-known markers. All groups are scanned
// concurrently; the winner is always the highest-priority group with a
// marker-bearing directory, never the group that happened to finish first.
package rootfind

import (
	"context"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	gitMetadataMarkerNameConstant       = ".git"
	mercurialMetadataMarkerNameConstant = ".hg"
	workspaceManifestMarkerNameConstant = "go.work"
	resolutionStartedMessageConstant    = "root resolution started"
	resolutionDecidedMessageConstant    = "root resolution decided"
	resolutionExhaustedMessageConstant  = "root resolution exhausted without a marker"
	scanFailureMessageConstant          = "candidate scan failed; treating group as negative"
	jobCountFieldNameConstant           = "job_count"
	winningDirectoryFieldNameConstant   = "directory"
	jobIndexFieldNameConstant           = "job_index"
)

// markerNames lists the filesystem entries whose presence identifies a
// repository or monorepo root.
var markerNames = []string{
	gitMetadataMarkerNameConstant,
	mercurialMetadataMarkerNameConstant,
	workspaceManifestMarkerNameConstant,
}

// MarkerNames returns the fixed marker set consulted by every scan.
func MarkerNames() []string {
	copied := make([]string, len(markerNames))
	copy(copied, markerNames)
	return copied
}

// Resolver selects the marker-bearing directory belonging to the
// highest-priority scan group.
type Resolver struct {
	fileSystem afero.Fs
	logger     *zap.Logger
}

// NewResolver builds a resolver over the provided filesystem. A nil
// filesystem falls back to the operating system; a nil logger disables
// diagnostics.
func NewResolver(fileSystem afero.Fs, logger *zap.Logger) *Resolver {
	if fileSystem == nil {
		fileSystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fileSystem: fileSystem, logger: logger}
}

// groupReport carries one scan group's outcome back to the selection loop.
type groupReport struct {
	groupIndex int
	directory  string
	positive   bool
}

// Resolve scans every candidate group concurrently and returns the
// marker-bearing directory of the highest-priority positive group, or false
// when every group reported negative. Groups ranked below an already decided
// winner are left to finish on their own; the bounded wasted work is cheaper
// than cancellation plumbing.
func (resolver *Resolver) Resolve(executionContext context.Context, candidateGroups [][]string) (string, bool) {
	if len(candidateGroups) == 0 {
		return "", false
	}

	resolver.logger.Debug(resolutionStartedMessageConstant, zap.Int(jobCountFieldNameConstant, len(candidateGroups)))

	reports := make(chan groupReport, len(candidateGroups))
	for groupIndex := range candidateGroups {
		go func(groupIndex int, candidateDirectories []string) {
			directory, positive := resolver.scanGroup(executionContext, groupIndex, candidateDirectories)
			reports <- groupReport{groupIndex: groupIndex, directory: directory, positive: positive}
		}(groupIndex, candidateGroups[groupIndex])
	}

	reported := make([]bool, len(candidateGroups))
	outcomes := make([]groupReport, len(candidateGroups))
	remainingReports := len(candidateGroups)

	for remainingReports > 0 {
		report := <-reports
		remainingReports--
		reported[report.groupIndex] = true
		outcomes[report.groupIndex] = report

		// Decide from the highest priority downward. The first positive
		// outcome inside a fully reported prefix wins; an unreported
		// position blocks the decision because a still-running
		// higher-priority scan might yet be positive.
		decisionBlocked := false
		for position := range candidateGroups {
			if !reported[position] {
				decisionBlocked = true
				break
			}
			if outcomes[position].positive {
				resolver.logger.Debug(resolutionDecidedMessageConstant,
					zap.Int(jobIndexFieldNameConstant, position),
					zap.String(winningDirectoryFieldNameConstant, outcomes[position].directory),
				)
				return outcomes[position].directory, true
			}
		}
		if !decisionBlocked {
			break
		}
	}

	resolver.logger.Debug(resolutionExhaustedMessageConstant)
	return "", false
}

// scanGroup resolves one group: positive on the first candidate path bearing
// a marker, negative once the lazy candidate stream is exhausted. Scan errors
// demote the group to negative instead of aborting the resolution.
func (resolver *Resolver) scanGroup(executionContext context.Context, groupIndex int, candidateDirectories []string) (string, bool) {
	for candidate := range markerCandidates(candidateDirectories, markerNames) {
		if executionContext.Err() != nil {
			return "", false
		}

		markerExists, statError := afero.Exists(resolver.fileSystem, candidate.markerPath)
		if statError != nil {
			resolver.logger.Debug(scanFailureMessageConstant,
				zap.Int(jobIndexFieldNameConstant, groupIndex),
				zap.Error(statError),
			)
			return "", false
		}
		if markerExists {
			return candidate.directory, true
		}
	}
	return "", false
}
