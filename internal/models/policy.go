package models

import (
	"fmt"
	"sort"
	"strings"
)

// StatusPolicy decides the status of a post once its results are merged.
// errorMessage describes failed platforms only and may be set alongside a
// posted status.
type StatusPolicy interface {
	Name() string
	Decide(platforms []string, results map[string]PublishResult) (status, errorMessage string)
}

// AnySucceedsPolicy marks a post posted as soon as one platform succeeded.
// Partial failures are kept in the results and the error message.
type AnySucceedsPolicy struct{}

func (AnySucceedsPolicy) Name() string { return "any" }

func (AnySucceedsPolicy) Decide(platforms []string, results map[string]PublishResult) (string, string) {
	msg := FailureSummary(results)
	for _, r := range results {
		if r.Success {
			return PostStatusPosted, msg
		}
	}
	return PostStatusFailed, msg
}

// AllSucceedPolicy only marks a post posted when every target platform has a
// successful result.
type AllSucceedPolicy struct{}

func (AllSucceedPolicy) Name() string { return "all" }

func (AllSucceedPolicy) Decide(platforms []string, results map[string]PublishResult) (string, string) {
	msg := FailureSummary(results)
	if len(platforms) == 0 {
		return PostStatusFailed, msg
	}
	for _, p := range platforms {
		if r, ok := results[p]; !ok || !r.Success {
			if msg == "" {
				msg = fmt.Sprintf("no successful result for %s", p)
			}
			return PostStatusFailed, msg
		}
	}
	return PostStatusPosted, ""
}

// PolicyByName maps a config value to a policy. Unknown names fall back to
// AnySucceedsPolicy.
func PolicyByName(name string) StatusPolicy {
	if strings.EqualFold(name, "all") {
		return AllSucceedPolicy{}
	}
	return AnySucceedsPolicy{}
}

// FailureSummary lists failed platforms with their errors in platform order.
func FailureSummary(results map[string]PublishResult) string {
	var failed []string
	for p, r := range results {
		if !r.Success {
			failed = append(failed, p)
		}
	}
	if len(failed) == 0 {
		return ""
	}
	sort.Strings(failed)
	parts := make([]string, 0, len(failed))
	for _, p := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", p, results[p].Error))
	}
	return "failed on platforms: " + strings.Join(parts, "; ")
}
