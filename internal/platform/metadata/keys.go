package metadata

const (
	// LastTallyRebuildAtKey stores the RFC3339 timestamp of the most recent
	// full tally rebuild, for operators inspecting repair history.
	LastTallyRebuildAtKey = "last_tally_rebuild_at"

	// SchemaPrimedKey marks that the schema has been migrated at least once.
	SchemaPrimedKey = "schema_primed"
)
