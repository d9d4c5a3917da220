package errclass

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"oktabot/internal/services"
)

// Category is the broad kind of an error independent of its message text.
type Category int

const (
	CategoryNone Category = iota
	CategoryTimeout
	CategoryConnection
	CategoryIO
	CategoryPermission
	CategoryMemory
	CategoryMalformedInput
	CategoryMissingKey
	CategoryBadValue
	CategoryNotFound
	CategoryMalformedData
)

var categoryNames = map[Category]string{
	CategoryNone:           "none",
	CategoryTimeout:        "timeout",
	CategoryConnection:     "connection",
	CategoryIO:             "io",
	CategoryPermission:     "permission",
	CategoryMemory:         "memory",
	CategoryMalformedInput: "malformed_input",
	CategoryMissingKey:     "missing_key",
	CategoryBadValue:       "bad_value",
	CategoryNotFound:       "not_found",
	CategoryMalformedData:  "malformed_data",
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// MissingKeyError reports a required key absent from structured input.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return "missing required key: " + e.Key
}

// CategoryOf inspects the error chain and returns the broadest matching
// category. Order matters: a timeout wrapped inside a net.OpError is reported
// as a timeout, and a missing file is reported as not-found rather than IO.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryNone
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, services.ErrTimeout) || errors.Is(err, syscall.ETIMEDOUT) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	if errors.Is(err, syscall.ENOMEM) {
		return CategoryMemory
	}

	var missingKey *MissingKeyError
	if errors.As(err, &missingKey) {
		return CategoryMissingKey
	}
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, services.ErrNotFound) {
		return CategoryNotFound
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return CategoryConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return CategoryConnection
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryConnection
	}

	if errors.Is(err, fs.ErrPermission) {
		return CategoryPermission
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return CategoryMalformedData
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return CategoryMalformedData
	}
	if errors.Is(err, strconv.ErrSyntax) || errors.Is(err, strconv.ErrRange) {
		return CategoryBadValue
	}
	if errors.Is(err, services.ErrValidation) || errors.Is(err, services.ErrConfiguration) {
		return CategoryMalformedInput
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return CategoryIO
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return CategoryIO
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return CategoryIO
	}
	return CategoryNone
}
