package model

// Config holds the resolved configuration. Field tags follow the YAML keys
// read by viper.
type Config struct {
	Username string         `mapstructure:"username"`
	Password string         `mapstructure:"password"`
	DeviceID string         `mapstructure:"device_id"`
	Market   string         `mapstructure:"market"`
	API      APIConfig      `mapstructure:"api"`
	Search   SearchConfig   `mapstructure:"search"`
	Download DownloadConfig `mapstructure:"download"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Paths    PathsConfig    `mapstructure:"paths"`
}

// APIConfig holds the remote endpoints and request pacing.
type APIConfig struct {
	StatusURL      string  `mapstructure:"status_url"`
	BaseURL        string  `mapstructure:"base_url"`
	SearchURL      string  `mapstructure:"search_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	AcceptLanguage string  `mapstructure:"accept_language"`
}

// SearchConfig holds catalog query defaults.
type SearchConfig struct {
	Languages []string `mapstructure:"languages"`
	SFW       bool     `mapstructure:"sfw"`
	PageSize  int      `mapstructure:"page_size"`
}

// DownloadConfig holds the download pipeline settings.
type DownloadConfig struct {
	OutPath        string `mapstructure:"out_path"`
	Audiobook      bool   `mapstructure:"audiobook"`
	Ebook          bool   `mapstructure:"ebook"`
	Workers        int    `mapstructure:"workers"`
	SizePolicy     string `mapstructure:"size_policy"`
	StreamFallback bool   `mapstructure:"stream_fallback"`
	SkipHistory    bool   `mapstructure:"skip_history"`
	Tag            bool   `mapstructure:"tag"`
	FFmpeg         string `mapstructure:"ffmpeg"`
}

// LoggingConfig holds the log file settings.
type LoggingConfig struct {
	File    string `mapstructure:"file"`
	Level   string `mapstructure:"level"`
	APIFile string `mapstructure:"api_file"`
}

// PathsConfig holds the on-disk state locations.
type PathsConfig struct {
	TokenFile   string `mapstructure:"token_file"`
	HistoryFile string `mapstructure:"history_file"`
}

// Formats returns the enabled edition formats.
func (c *Config) Formats() Formats {
	return Formats{Audio: c.Download.Audiobook, Text: c.Download.Ebook}
}

// Args holds CLI arguments parsed by go-arg.
type Args struct {
	Config     string   `arg:"--config" help:"Path to config.yaml."`
	OutPath    string   `arg:"-o,--output" help:"Where to download to. Path will be made if it doesn't already exist."`
	Username   string   `arg:"--username" help:"Username or e-mail address."`
	Password   string   `arg:"--password" help:"Password. Prompted for when omitted."`
	ForceFetch bool     `arg:"--force-fetch" help:"Discard the stored token and log in again."`
	SFW        bool     `arg:"--sfw" help:"Exclude explicit results."`
	Ebook      *bool    `arg:"--ebook" help:"Download ebooks (default: false)."`
	Audiobook  *bool    `arg:"--audiobook" help:"Download audio books (default: true)."`
	Market     string   `arg:"--market" help:"Target market (default: Germany)."`
	Workers    int      `arg:"--workers" help:"Concurrent downloads (default: 1)."`
	Match      string   `arg:"--match" help:"Only download titles fuzzily matching this text."`
	IDs        []uint64 `arg:"--id,separate" help:"Book ID."`
	IDFile     string   `arg:"--id-file" help:"File with one book ID per line."`
	History    bool     `arg:"--history" help:"List finished downloads and exit."`
	AudioISBNs []string `arg:"--audioisbn,separate" help:"Audiobook ISBN."`
	EbookISBNs []string `arg:"--ebookisbn,separate" help:"Ebook ISBN."`
	Authors    []string `arg:"--author,separate" help:"Author name."`
	Narrators  []string `arg:"--narrator,separate" help:"Narrator name."`
	Series     []uint32 `arg:"--series,separate" help:"Series ID."`
	Queries    []string `arg:"--query,separate" help:"Free-text tab search."`
	Languages  []string `arg:"--language,separate" help:"Language name (default: English)."`
}

// Description provides the help header for go-arg.
func (Args) Description() string {
	return "Download audio books and ebooks from a BookBeat subscription.\n"
}

// HasSources reports whether any download source was requested.
func (a *Args) HasSources() bool {
	return a.IDFile != "" || len(a.IDs)+len(a.AudioISBNs)+len(a.EbookISBNs)+len(a.Authors)+
		len(a.Narrators)+len(a.Series)+len(a.Queries) > 0
}
