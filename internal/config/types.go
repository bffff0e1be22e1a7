package config

// Config is timerd's top-level configuration.
//
// The file may be JSON or YAML; YAML is coerced to JSON and both are decoded
// strictly (unknown fields are rejected).
//
// All durations are Go duration strings (e.g. "500ms", "1s", "1m").
type Config struct {
	// CheckInterval is the scheduler tick interval. Default: "1s".
	CheckInterval string `json:"check_interval,omitempty"`

	Logging LoggingConfig `json:"logging"`
	Storage StorageConfig `json:"storage"`

	// API controls the HTTP command surface. Omitted means disabled.
	API *APIConfig `json:"api,omitempty"`

	// Telegram controls the optional fired-timer notification sink.
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console bool          `json:"console"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig controls the snapshot persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./timerd_snapshot.json" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// APIConfig controls the HTTP command surface.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8484").
//   - If you bind to a non-loopback address, set a token or explicitly
//     allow_insecure.
type APIConfig struct {
	Enabled       bool   `json:"enabled"`
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:8484"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`

	// RatePerSec caps accepted requests per second. 0 disables the cap.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

// TelegramConfig controls the Telegram notification sink. When enabled, fired
// timer events are forwarded to the configured chat.
type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}
