package execshell

import (
	"fmt"
	"sort"
	"strings"
)

const (
	exitPolicyAnyNameConstant       = "any"
	exitPolicyInheritNameConstant   = "inherit"
	exitPolicyAllowListNameConstant = "allow-list"
	allowListRenderTemplateConstant = "%s(%s)"
	allowListCodeSeparatorConstant  = ","
)

// ExitPolicyKind enumerates the supported exit status interpretations.
type ExitPolicyKind string

// Supported exit policy kinds.
const (
	ExitPolicyKindAny       ExitPolicyKind = ExitPolicyKind(exitPolicyAnyNameConstant)
	ExitPolicyKindInherit   ExitPolicyKind = ExitPolicyKind(exitPolicyInheritNameConstant)
	ExitPolicyKindAllowList ExitPolicyKind = ExitPolicyKind(exitPolicyAllowListNameConstant)
)

// ExitPolicy decides whether a numeric termination status counts as success.
// Exactly one kind is active per spawned command.
type ExitPolicy struct {
	kind         ExitPolicyKind
	allowedCodes map[int]struct{}
}

// AnyExitPolicy accepts every numeric termination status.
func AnyExitPolicy() ExitPolicy {
	return ExitPolicy{kind: ExitPolicyKindAny}
}

// InheritExitPolicy accepts every numeric termination status and propagates it
// into the shared exit status registry.
func InheritExitPolicy() ExitPolicy {
	return ExitPolicy{kind: ExitPolicyKindInherit}
}

// AllowListExitPolicy accepts only the provided termination statuses.
func AllowListExitPolicy(allowedCodes ...int) ExitPolicy {
	codeSet := make(map[int]struct{}, len(allowedCodes))
	for _, allowedCode := range allowedCodes {
		codeSet[allowedCode] = struct{}{}
	}
	return ExitPolicy{kind: ExitPolicyKindAllowList, allowedCodes: codeSet}
}

// Kind reports the active policy variant, defaulting to the allow-list of
// exactly zero when the policy was left unconfigured.
func (policy ExitPolicy) Kind() ExitPolicyKind {
	if len(policy.kind) == 0 {
		return ExitPolicyKindAllowList
	}
	return policy.kind
}

// Accepts reports whether the provided numeric termination status counts as success.
func (policy ExitPolicy) Accepts(statusCode int) bool {
	switch policy.Kind() {
	case ExitPolicyKindAny, ExitPolicyKindInherit:
		return true
	default:
		if policy.allowedCodes == nil {
			return statusCode == 0
		}
		_, allowed := policy.allowedCodes[statusCode]
		return allowed
	}
}

// String renders the policy for diagnostics.
func (policy ExitPolicy) String() string {
	if policy.Kind() != ExitPolicyKindAllowList {
		return string(policy.Kind())
	}

	allowedCodes := make([]int, 0, len(policy.allowedCodes))
	for allowedCode := range policy.allowedCodes {
		allowedCodes = append(allowedCodes, allowedCode)
	}
	if len(allowedCodes) == 0 {
		allowedCodes = append(allowedCodes, 0)
	}
	sort.Ints(allowedCodes)

	renderedCodes := make([]string, 0, len(allowedCodes))
	for _, allowedCode := range allowedCodes {
		renderedCodes = append(renderedCodes, fmt.Sprintf("%d", allowedCode))
	}
	return fmt.Sprintf(allowListRenderTemplateConstant, exitPolicyAllowListNameConstant, strings.Join(renderedCodes, allowListCodeSeparatorConstant))
}

// OutputStreamSelection names the subset of child process streams to buffer.
type OutputStreamSelection struct {
	CaptureStandardOutput bool
	CaptureStandardError  bool
}

// AllOutputStreams selects both standard output and standard error.
func AllOutputStreams() OutputStreamSelection {
	return OutputStreamSelection{CaptureStandardOutput: true, CaptureStandardError: true}
}
