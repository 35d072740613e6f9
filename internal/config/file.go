package config

import "time"

// RegistrySection configures the case registry watcher.
type RegistrySection struct {
	// URL overrides the registry search page.
	URL string `yaml:"url,omitempty"`

	// MaxPages caps pagination. A pointer so that 0 (unlimited) can be set.
	MaxPages *int `yaml:"maxPages,omitempty"`
}

// AddressesSection configures the address crawler.
type AddressesSection struct {
	// MapURL overrides the map service base URL.
	MapURL string `yaml:"mapUrl,omitempty"`

	// MaxRows is the suggestion page size.
	MaxRows int `yaml:"maxRows,omitempty"`

	// MaxFailures is the consecutive failure limit.
	MaxFailures int `yaml:"maxFailures,omitempty"`

	// Alphabet replaces the seed alphabet.
	Alphabet string `yaml:"alphabet,omitempty"`

	// Separators replaces the set of characters that are never doubled.
	Separators []string `yaml:"separators,omitempty"`

	// FoldCase toggles case folding of learned characters.
	FoldCase *bool `yaml:"foldCase,omitempty"`
}

// WatchSection configures the watchjob runner.
type WatchSection struct {
	// Concurrency is the number of jobs run in parallel.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Schedule is a cron expression, e.g. "0 7 * * *" or "@every 6h".
	Schedule string `yaml:"schedule,omitempty"`
}

// HTTPSection configures the HTTP client shared by both crawlers.
type HTTPSection struct {
	// Delay is the mean delay between requests, e.g. "5s".
	Delay *time.Duration `yaml:"delay,omitempty"`

	// Timeout is the per-request timeout, e.g. "60s".
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`

	// Proxy is an optional SOCKS5 proxy address.
	Proxy string `yaml:"proxy,omitempty"`

	// MaxBodySize limits response bodies in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`
}

// File represents the structure of the .bygglarm configuration file.
type File struct {
	// DBDir overrides the database directory.
	DBDir string `yaml:"dbDir,omitempty"`

	Registry  RegistrySection  `yaml:"registry,omitempty"`
	Addresses AddressesSection `yaml:"addresses,omitempty"`
	Watch     WatchSection     `yaml:"watch,omitempty"`
	HTTP      HTTPSection      `yaml:"http,omitempty"`
}

// Apply copies every value set in the file onto cfg.
// Unset values leave cfg unchanged.
func (cf *File) Apply(cfg *Config) {
	if cf.DBDir != "" {
		cfg.DBDir = cf.DBDir
	}

	if cf.Registry.URL != "" {
		cfg.RegistryURL = cf.Registry.URL
	}
	if cf.Registry.MaxPages != nil {
		cfg.MaxPages = *cf.Registry.MaxPages
	}

	if cf.Addresses.MapURL != "" {
		cfg.MapURL = cf.Addresses.MapURL
	}
	if cf.Addresses.MaxRows != 0 {
		cfg.MaxRows = cf.Addresses.MaxRows
	}
	if cf.Addresses.MaxFailures != 0 {
		cfg.MaxFailures = cf.Addresses.MaxFailures
	}
	if cf.Addresses.Alphabet != "" {
		cfg.Alphabet = cf.Addresses.Alphabet
	}
	if len(cf.Addresses.Separators) > 0 {
		cfg.Separators = append([]string(nil), cf.Addresses.Separators...)
	}
	if cf.Addresses.FoldCase != nil {
		cfg.FoldCase = *cf.Addresses.FoldCase
	}

	if cf.Watch.Concurrency != 0 {
		cfg.Concurrency = cf.Watch.Concurrency
	}
	if cf.Watch.Schedule != "" {
		cfg.Schedule = cf.Watch.Schedule
	}

	if cf.HTTP.Delay != nil {
		cfg.AvgDelay = *cf.HTTP.Delay
	}
	if cf.HTTP.Timeout != 0 {
		cfg.Timeout = cf.HTTP.Timeout
	}
	if cf.HTTP.UserAgent != "" {
		cfg.UserAgent = cf.HTTP.UserAgent
	}
	if cf.HTTP.Proxy != "" {
		cfg.ProxyAddress = cf.HTTP.Proxy
	}
	if cf.HTTP.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.HTTP.MaxBodySize
	}
}
