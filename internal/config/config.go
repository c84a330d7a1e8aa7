package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"  validate:"required"`
	Storage StorageConfig `mapstructure:"storage" validate:"required"`
	Upload  UploadConfig  `mapstructure:"upload"  validate:"required"`
	Vision  VisionConfig  `mapstructure:"vision"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// StorageConfig selects the image record store and the blob root.
type StorageConfig struct {
	// Driver selects the record store: the volatile in-memory store or
	// the durable SQLite variant behind the same interface.
	Driver string `mapstructure:"driver"      validate:"required,oneof=memory sqlite"`
	// SQLitePath is the database file used when Driver is "sqlite".
	SQLitePath string `mapstructure:"sqlite_path" validate:"required_if=Driver sqlite"`
	// UploadDir is the root directory for stored image blobs.
	UploadDir string `mapstructure:"upload_dir"  validate:"required"`
	// SweepAfterHours removes blobs untouched for this many hours. Records
	// outlive the sweep; only the stored bytes are reclaimed. Zero disables it.
	SweepAfterHours int `mapstructure:"sweep_after_hours" validate:"gte=0"`
}

// UploadConfig bounds what the service accepts as an image upload.
type UploadConfig struct {
	MinBytes     int64    `mapstructure:"min_bytes"     validate:"required,gt=0"`
	MaxBytes     int64    `mapstructure:"max_bytes"     validate:"required,gtfield=MinBytes"`
	AllowedTypes []string `mapstructure:"allowed_types" validate:"required,min=1"`
}

// VisionConfig contains the recognition backend settings.
type VisionConfig struct {
	// Enabled turns the Google Vision backend on. When false the server
	// runs without credentials and every submitted job lands in the error
	// state with a clear message.
	Enabled bool `mapstructure:"enabled"`
	// CredentialsFile points at a Google service account key. Left empty,
	// the client falls back to application default credentials.
	CredentialsFile string `mapstructure:"credentials_file"`
	// MaxLabels and MaxObjects bound the per-feature result counts requested
	// from the backend.
	MaxLabels  int `mapstructure:"max_labels"  validate:"gte=0"`
	MaxObjects int `mapstructure:"max_objects" validate:"gte=0"`
}

// AuthConfig contains authentication settings. Bearer-token auth is
// enabled only when a secret is configured; otherwise callers identify
// themselves with an explicit user id field.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`
}
