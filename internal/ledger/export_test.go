package ledger

import "context"

// ForceSchemaVersion overwrites the stored schema version.
func (s *Store) ForceSchemaVersion(ctx context.Context, version int) error {
	return s.exec(ctx, "UPDATE schema_version SET version = ?", version)
}
