package config

// StoreConfig enables the SQLite series store listener.
type StoreConfig struct {
	SQLitePath string `json:"sqlite_path"`
}

func (c StoreConfig) Enabled() bool { return c.SQLitePath != "" }
