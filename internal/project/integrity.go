package project

import (
	"log/slog"
	"maps"
	"slices"

	"oktabot/internal/fileutil"
)

// Hasher returns the content digest of a file, or "" when it does not exist.
type Hasher func(path string) (string, error)

// Mismatch describes one recorded file that no longer matches disk.
type Mismatch struct {
	Path   string
	Reason string
}

// IntegrityRecord maps project-relative paths to content digests.
type IntegrityRecord struct {
	hashes map[string]string
}

type integrityDocument struct {
	FileHashes map[string]string `json:"file_hashes"`
}

// NewIntegrityRecord returns an empty record.
func NewIntegrityRecord() *IntegrityRecord {
	return &IntegrityRecord{hashes: map[string]string{}}
}

// Record stores the digest for path, replacing any previous value.
func (r *IntegrityRecord) Record(path, hash string) {
	if r.hashes == nil {
		r.hashes = map[string]string{}
	}
	r.hashes[path] = hash
}

// Len returns the number of tracked files.
func (r *IntegrityRecord) Len() int { return len(r.hashes) }

// Paths returns the tracked paths sorted.
func (r *IntegrityRecord) Paths() []string {
	return slices.Sorted(maps.Keys(r.hashes))
}

// Hash returns the recorded digest for path.
func (r *IntegrityRecord) Hash(path string) (string, bool) {
	h, ok := r.hashes[path]
	return h, ok
}

// Clear forgets every tracked file.
func (r *IntegrityRecord) Clear() { r.hashes = map[string]string{} }

// Verify re-hashes every tracked file. resolve maps a recorded path to the
// path on disk. An empty result means every file is present and unchanged.
func (r *IntegrityRecord) Verify(resolve func(string) string, hash Hasher) []Mismatch {
	var mismatches []Mismatch
	for _, path := range r.Paths() {
		current, err := hash(resolve(path))
		switch {
		case err != nil:
			mismatches = append(mismatches, Mismatch{Path: path, Reason: "unreadable: " + err.Error()})
		case current == "":
			mismatches = append(mismatches, Mismatch{Path: path, Reason: "missing"})
		case current != r.hashes[path]:
			mismatches = append(mismatches, Mismatch{Path: path, Reason: "modified"})
		}
	}
	return mismatches
}

// LoadIntegrity reads integrity.json; a missing or corrupt file yields an
// empty record.
func LoadIntegrity(logger *slog.Logger, path string) *IntegrityRecord {
	var doc integrityDocument
	if !fileutil.ReadJSON(logger, path, &doc) || doc.FileHashes == nil {
		return NewIntegrityRecord()
	}
	return &IntegrityRecord{hashes: doc.FileHashes}
}

// SaveIntegrity writes integrity.json atomically.
func SaveIntegrity(path string, record *IntegrityRecord) error {
	hashes := record.hashes
	if hashes == nil {
		hashes = map[string]string{}
	}
	return fileutil.WriteJSON(path, integrityDocument{FileHashes: hashes})
}
