package errclass_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	"oktabot/internal/errclass"
	"oktabot/internal/services"
)

func TestClassifyKeywordPriority(t *testing.T) {
	c := errclass.New(errclass.Keywords{})
	tests := []struct {
		message string
		want    errclass.ErrorType
	}{
		{"HTTP 429: Too Many Requests", errclass.Quota},
		{"quota exceeded; connection closed", errclass.Quota},
		{"RESOURCE EXHAUSTED while contacting model", errclass.Quota},
		{"dial tcp: connection refused", errclass.Network},
		{"tls: ssl handshake failure", errclass.Network},
		{"write /x: no space left on device", errclass.Disk},
		{"open /y: permission denied", errclass.Disk},
		{"cannot allocate memory", errclass.System},
		{"unexpected nil pointer", errclass.CodeBug},
	}
	for _, tc := range tests {
		if got := c.Classify(tc.message, errclass.CategoryNone); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestClassifyCategoryFallback(t *testing.T) {
	c := errclass.New(errclass.Keywords{})
	tests := []struct {
		category errclass.Category
		want     errclass.ErrorType
	}{
		{errclass.CategoryTimeout, errclass.Network},
		{errclass.CategoryConnection, errclass.Network},
		{errclass.CategoryIO, errclass.Disk},
		{errclass.CategoryPermission, errclass.Disk},
		{errclass.CategoryMemory, errclass.System},
		{errclass.CategoryMalformedInput, errclass.Config},
		{errclass.CategoryMissingKey, errclass.Config},
		{errclass.CategoryBadValue, errclass.Config},
		{errclass.CategoryNotFound, errclass.Config},
		{errclass.CategoryMalformedData, errclass.Config},
		{errclass.CategoryNone, errclass.CodeBug},
	}
	for _, tc := range tests {
		if got := c.Classify("opaque failure", tc.category); got != tc.want {
			t.Fatalf("category %s classified as %s, want %s", tc.category, got, tc.want)
		}
	}
}

func TestCustomQuotaKeywords(t *testing.T) {
	c := errclass.New(errclass.Keywords{Quota: []string{"  Credits Depleted "}})
	if got := c.Classify("account credits depleted", errclass.CategoryNone); got != errclass.Quota {
		t.Fatalf("expected custom quota keyword to match, got %s", got)
	}
	if got := c.Classify("429", errclass.CategoryNone); got != errclass.CodeBug {
		t.Fatalf("expected default quota keywords replaced, got %s", got)
	}
}

func TestZeroClassifierUsesDefaults(t *testing.T) {
	var c errclass.Classifier
	if got := c.Classify("rate limit reached", errclass.CategoryNone); got != errclass.Quota {
		t.Fatalf("expected quota from zero classifier, got %s", got)
	}
}

func TestIsRetryable(t *testing.T) {
	for _, typ := range errclass.Types {
		want := typ != errclass.Config && typ != errclass.CodeBug
		if got := errclass.IsRetryable(typ); got != want {
			t.Fatalf("IsRetryable(%s) = %v, want %v", typ, got, want)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o wait exceeded" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestCategoryOf(t *testing.T) {
	_, missingErr := os.Open(filepath.Join(t.TempDir(), "absent.json"))
	var syntaxTarget map[string]any
	syntaxErr := json.Unmarshal([]byte("{"), &syntaxTarget)
	_, atoiErr := strconv.Atoi("abc")

	tests := []struct {
		name string
		err  error
		want errclass.Category
	}{
		{"nil", nil, errclass.CategoryNone},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), errclass.CategoryTimeout},
		{"timeout marker", services.Wrap(services.ErrTimeout, "editing", "run", "", nil), errclass.CategoryTimeout},
		{"net timeout", timeoutErr{}, errclass.CategoryTimeout},
		{"connection refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, errclass.CategoryConnection},
		{"memory", fmt.Errorf("alloc: %w", syscall.ENOMEM), errclass.CategoryMemory},
		{"missing file", missingErr, errclass.CategoryNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, errclass.CategoryPermission},
		{"json syntax", syntaxErr, errclass.CategoryMalformedData},
		{"bad value", atoiErr, errclass.CategoryBadValue},
		{"missing key", &errclass.MissingKeyError{Key: "story_structure"}, errclass.CategoryMissingKey},
		{"validation marker", services.Wrap(services.ErrValidation, "", "", "bad plan", nil), errclass.CategoryMalformedInput},
		{"generic io", &fs.PathError{Op: "write", Path: "/x", Err: syscall.EIO}, errclass.CategoryIO},
		{"cross-device rename", &os.LinkError{Op: "rename", Old: "a.tmp", New: "a", Err: syscall.EXDEV}, errclass.CategoryIO},
		{"plain", errors.New("boom"), errclass.CategoryNone},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errclass.CategoryOf(tc.err); got != tc.want {
				t.Fatalf("CategoryOf = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassifyErrorCombinesMessageAndCategory(t *testing.T) {
	c := errclass.New(errclass.Keywords{})
	err := services.Wrap(services.ErrConfiguration, "upload", "metadata", "privacy status invalid", nil)
	if got := c.ClassifyError(err); got != errclass.Config {
		t.Fatalf("expected config, got %s", got)
	}
	if got := c.ClassifyError(context.Canceled); got != errclass.CodeBug {
		t.Fatalf("expected cancellation to be non-retryable, got %s", got)
	}
}
