package metadata

// Metadata is a simple key/value table used for small pieces of
// operational state that must survive restarts.
type Metadata struct {
	Key   string `gorm:"primaryKey;type:varchar(64)"`
	Value string
}
