package rootfind

import (
	"iter"
	"path/filepath"
)

// markerCandidate pairs one candidate directory with the path of one marker
// inside it.
type markerCandidate struct {
	directory  string
	markerPath string
}

// markerCandidates yields the Cartesian product of candidate directories and
// marker names as a lazy, finite, non-restartable sequence. Consumers may
// stop early on the first hit without draining the remainder.
func markerCandidates(candidateDirectories []string, markers []string) iter.Seq[markerCandidate] {
	return func(yield func(markerCandidate) bool) {
		for _, candidateDirectory := range candidateDirectories {
			for _, markerName := range markers {
				candidate := markerCandidate{
					directory:  candidateDirectory,
					markerPath: filepath.Join(candidateDirectory, markerName),
				}
				if !yield(candidate) {
					return
				}
			}
		}
	}
}

// AncestorGroups builds one single-directory group per path segment, from the
// provided directory upward to the filesystem root. The starting directory
// carries the highest priority.
func AncestorGroups(startDirectory string) [][]string {
	cleanedDirectory := filepath.Clean(startDirectory)

	groups := make([][]string, 0, 8)
	for {
		groups = append(groups, []string{cleanedDirectory})
		parentDirectory := filepath.Dir(cleanedDirectory)
		if parentDirectory == cleanedDirectory {
			return groups
		}
		cleanedDirectory = parentDirectory
	}
}
