package errclass

import (
	"strings"
)

// ErrorType is the retry-relevant classification of a failure.
type ErrorType string

const (
	Quota   ErrorType = "quota"
	Network ErrorType = "network"
	Disk    ErrorType = "disk"
	Config  ErrorType = "config"
	System  ErrorType = "system"
	CodeBug ErrorType = "code_bug"
)

// Types lists every error type in a stable order.
var Types = []ErrorType{Quota, Network, Disk, Config, System, CodeBug}

// IsRetryable reports whether failures of this type may succeed on retry.
func IsRetryable(t ErrorType) bool {
	switch t {
	case Quota, Network, Disk, System:
		return true
	default:
		return false
	}
}

var (
	DefaultQuotaKeywords   = []string{"quota", "rate limit", "429", "too many requests", "resource exhausted"}
	DefaultNetworkKeywords = []string{"connection", "timeout", "network", "dns", "ssl", "certificate"}
	DefaultDiskKeywords    = []string{"no space", "disk full", "permission denied", "file not found"}
	DefaultSystemKeywords  = []string{"memory", "ram", "cpu", "system", "os error"}
)

// Keywords holds the lower-case substrings checked for each retryable type.
type Keywords struct {
	Quota   []string
	Network []string
	Disk    []string
	System  []string
}

// DefaultKeywords returns a copy of the built-in keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Quota:   append([]string(nil), DefaultQuotaKeywords...),
		Network: append([]string(nil), DefaultNetworkKeywords...),
		Disk:    append([]string(nil), DefaultDiskKeywords...),
		System:  append([]string(nil), DefaultSystemKeywords...),
	}
}

// Classifier maps failures to an ErrorType. The zero value uses the default
// keyword sets.
type Classifier struct {
	rules []rule
}

type rule struct {
	typ      ErrorType
	keywords []string
}

// New builds a classifier from the given keyword sets. Empty sets fall back to
// the defaults so a partial configuration never disables a type entirely.
func New(k Keywords) *Classifier {
	d := DefaultKeywords()
	return &Classifier{rules: []rule{
		{typ: Quota, keywords: normalizeKeywords(k.Quota, d.Quota)},
		{typ: Network, keywords: normalizeKeywords(k.Network, d.Network)},
		{typ: Disk, keywords: normalizeKeywords(k.Disk, d.Disk)},
		{typ: System, keywords: normalizeKeywords(k.System, d.System)},
	}}
}

// Classify resolves the error type from message text first, then the broad
// category, defaulting to CodeBug.
func (c *Classifier) Classify(message string, category Category) ErrorType {
	rules := c.activeRules()
	lowered := strings.ToLower(message)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lowered, kw) {
				return r.typ
			}
		}
	}

	switch category {
	case CategoryTimeout, CategoryConnection:
		return Network
	case CategoryIO, CategoryPermission:
		return Disk
	case CategoryMemory:
		return System
	case CategoryMalformedInput, CategoryMissingKey, CategoryBadValue, CategoryNotFound, CategoryMalformedData:
		return Config
	default:
		return CodeBug
	}
}

// ClassifyError classifies err using its message and error chain.
func (c *Classifier) ClassifyError(err error) ErrorType {
	if err == nil {
		return CodeBug
	}
	return c.Classify(err.Error(), CategoryOf(err))
}

func (c *Classifier) activeRules() []rule {
	if c == nil || len(c.rules) == 0 {
		return New(Keywords{}).rules
	}
	return c.rules
}

func normalizeKeywords(values, fallback []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
