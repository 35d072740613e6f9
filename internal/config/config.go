package config

import (
	"net/url"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "bygglarm"

	// DefaultRegistryURL is the start page of the building-permit case registry.
	DefaultRegistryURL = "http://insynsbk.stockholm.se/Byggochplantjansten/Arenden/"

	// DefaultMapURL is the host of the city map and its suggestion endpoint.
	DefaultMapURL = "https://kartor.stockholm.se"

	// DefaultAvgDelay is the mean delay between two requests to the same site.
	// Actual delays are drawn uniformly from [1s, 2*DefaultAvgDelay].
	DefaultAvgDelay = 5 * time.Second

	// DefaultTimeout bounds a single HTTP request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRows is the maxrows parameter of suggestion requests.
	// A response with this many rows is treated as truncated.
	DefaultMaxRows = 10

	// DefaultConcurrency is the number of watchjobs run at the same time.
	DefaultConcurrency = 4

	// DefaultMaxPages caps the registry pages fetched for one search.
	DefaultMaxPages = 500

	// DefaultMaxFailures is the number of consecutive failed suggestion
	// requests after which a crawl gives up.
	DefaultMaxFailures = 5

	// DefaultAlphabet seeds the address crawl.
	DefaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZÅÄÖ"

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "bygglarm/1.0 (+https://github.com/nao1215/bygglarm)"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB
)

// DefaultSeparators returns the characters that may not be doubled in a
// generated prefix.
func DefaultSeparators() []string {
	return []string{" ", ":"}
}

// Config holds all configuration options for bygglarm.
// It is populated from defaults, the configuration file and CLI flags, in
// that order, and passed down explicitly.
type Config struct {
	// RegistryURL is the case registry search page.
	RegistryURL string

	// MapURL is the base URL of the map service.
	MapURL string

	// AvgDelay is the mean randomized delay between requests.
	// Zero disables the delay, which is only sensible against a local test site.
	AvgDelay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxRows is the suggestion page size.
	MaxRows int

	// Concurrency is the number of watchjobs processed in parallel.
	Concurrency int

	// MaxPages caps registry pagination per search. Zero means unlimited.
	MaxPages int

	// MaxFailures is the number of consecutive request failures a crawl tolerates.
	MaxFailures int

	// Alphabet is the initial set of characters used for prefix expansion.
	Alphabet string

	// Separators are characters that are never appended twice in a row.
	Separators []string

	// FoldCase upper-cases learned characters so "a" and "A" are one symbol.
	FoldCase bool

	// Schedule is a cron expression for "watch run". Empty runs once.
	Schedule string

	// DBDir is the directory holding the SQLite database and the crawl lock.
	DBDir string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON selects JSON log output.
	LogJSON bool

	// ConfigFilePath is an explicit configuration file path.
	// If empty, .bygglarm is looked up in the current and home directories.
	ConfigFilePath string

	// JSONReport and MarkdownReport select the report format. They are
	// mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		RegistryURL: DefaultRegistryURL,
		MapURL:      DefaultMapURL,
		AvgDelay:    DefaultAvgDelay,
		Timeout:     DefaultTimeout,
		MaxRows:     DefaultMaxRows,
		Concurrency: DefaultConcurrency,
		MaxPages:    DefaultMaxPages,
		MaxFailures: DefaultMaxFailures,
		Alphabet:    DefaultAlphabet,
		Separators:  DefaultSeparators(),
		FoldCase:    true,
		DBDir:       XDGDataDir(),
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// XDGDataDir returns the XDG data directory for bygglarm.
// On Linux: ~/.local/share/bygglarm
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for bygglarm.
// On Linux: ~/.config/bygglarm
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if !validURL(c.RegistryURL) || !validURL(c.MapURL) {
		return ErrInvalidURL
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.AvgDelay < 0 {
		return ErrInvalidDelay
	}
	// maxrows 1 would leave no room for a LEAF decision.
	if c.MaxRows < 2 {
		return ErrInvalidMaxRows
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}
	if c.MaxFailures <= 0 {
		return ErrInvalidMaxFailures
	}
	if c.Alphabet == "" {
		return ErrEmptyAlphabet
	}
	for _, sep := range c.Separators {
		if utf8.RuneCountInString(sep) != 1 {
			return ErrInvalidSeparator
		}
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
