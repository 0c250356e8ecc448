package server

// OAuthStorageType identifies the backend used to persist OAuth tokens,
// clients, and authorization flows.
type OAuthStorageType string

const (
	// OAuthStorageMemory keeps all OAuth state in process memory.
	// State is lost on restart; suitable for single-replica deployments.
	OAuthStorageMemory OAuthStorageType = "memory"

	// OAuthStorageValkey persists OAuth state in a Valkey (Redis-compatible)
	// server, allowing multiple replicas to share sessions.
	OAuthStorageValkey OAuthStorageType = "valkey"
)

// OAuthStorageConfig selects and configures the OAuth storage backend.
type OAuthStorageConfig struct {
	// Type is the storage backend type. Empty defaults to memory.
	Type OAuthStorageType

	// Valkey holds the Valkey connection settings, used when Type is
	// OAuthStorageValkey.
	Valkey ValkeyStorageConfig
}

// ValkeyStorageConfig holds connection settings for Valkey-backed storage.
type ValkeyStorageConfig struct {
	// URL is the Valkey server address (host:port).
	URL string

	// Password authenticates against the Valkey server. Optional.
	Password string

	// TLSEnabled enables TLS for the Valkey connection.
	TLSEnabled bool

	// KeyPrefix namespaces all keys written by this server.
	KeyPrefix string

	// DB is the Valkey logical database number.
	DB int
}
