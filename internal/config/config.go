// Package config resolves the run configuration from defaults, config.yaml,
// BOOKBEAT_* environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/helpers"
	"github.com/jmagar/bookbeat-cli/internal/model"
)

const (
	appName   = "bookbeat"
	envPrefix = "BOOKBEAT"
)

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() *model.Config {
	data := defaultDataPath()
	return &model.Config{
		Market: model.DefaultMarket,
		API: model.APIConfig{
			StatusURL:      api.DefaultStatus,
			BaseURL:        api.DefaultBaseURL,
			SearchURL:      api.DefaultSearch,
			RateLimit:      4,
			RateBurst:      4,
			AcceptLanguage: "en-US",
		},
		Search: model.SearchConfig{
			Languages: []string{model.DefaultLanguage},
			PageSize:  model.DefaultPageSize,
		},
		Download: model.DownloadConfig{
			OutPath:    "BookBeat downloads",
			Audiobook:  true,
			Workers:    model.DefaultWorkers,
			SizePolicy: string(model.DefaultSizePolicy),
			Tag:        true,
		},
		Logging: model.LoggingConfig{
			File:    filepath.Join(data, appName+".log"),
			Level:   "INFO",
			APIFile: filepath.Join(data, "api.log"),
		},
		Paths: model.PathsConfig{
			TokenFile:   filepath.Join(data, "token.json"),
			HistoryFile: filepath.Join(data, "history.db"),
		},
	}
}

// defaultConfigPath returns the default config directory for the current OS.
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", appName)
	}
}

// defaultDataPath returns the default state directory for the current OS.
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), appName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", appName)
	}
}

// Loader reads and writes the config file through its own viper instance.
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader seeded with DefaultConfig.
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, cfg *model.Config) {
	v.SetDefault("username", cfg.Username)
	v.SetDefault("password", cfg.Password)
	v.SetDefault("device_id", cfg.DeviceID)
	v.SetDefault("market", cfg.Market)
	v.SetDefault("api.status_url", cfg.API.StatusURL)
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.search_url", cfg.API.SearchURL)
	v.SetDefault("api.rate_limit", cfg.API.RateLimit)
	v.SetDefault("api.rate_burst", cfg.API.RateBurst)
	v.SetDefault("api.accept_language", cfg.API.AcceptLanguage)
	v.SetDefault("search.languages", cfg.Search.Languages)
	v.SetDefault("search.sfw", cfg.Search.SFW)
	v.SetDefault("search.page_size", cfg.Search.PageSize)
	v.SetDefault("download.out_path", cfg.Download.OutPath)
	v.SetDefault("download.audiobook", cfg.Download.Audiobook)
	v.SetDefault("download.ebook", cfg.Download.Ebook)
	v.SetDefault("download.workers", cfg.Download.Workers)
	v.SetDefault("download.size_policy", cfg.Download.SizePolicy)
	v.SetDefault("download.stream_fallback", cfg.Download.StreamFallback)
	v.SetDefault("download.skip_history", cfg.Download.SkipHistory)
	v.SetDefault("download.tag", cfg.Download.Tag)
	v.SetDefault("download.ffmpeg", cfg.Download.FFmpeg)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.api_file", cfg.Logging.APIFile)
	v.SetDefault("paths.token_file", cfg.Paths.TokenFile)
	v.SetDefault("paths.history_file", cfg.Paths.HistoryFile)
}

// Load reads path, or config.yaml from the config directory and the working
// directory when path is empty. A missing default file is not an error.
func (l *Loader) Load(path string) (*model.Config, error) {
	if path != "" {
		l.v.SetConfigFile(path)
	} else {
		l.v.SetConfigName("config")
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(defaultConfigPath())
		l.v.AddConfigPath(".")
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &model.Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	return cfg, nil
}

// Path returns the config file in use, or the default location when none
// was read.
func (l *Loader) Path() string {
	if used := l.v.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(defaultConfigPath(), "config.yaml")
}

// SaveDeviceID writes id into the config file in use, creating it if needed.
func (l *Loader) SaveDeviceID(id string) error {
	l.v.Set("device_id", id)
	path := l.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := l.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// EnsureDeviceID fills in a random device id on first run and persists it.
// It reports whether a new id was generated.
func (l *Loader) EnsureDeviceID(cfg *model.Config) (bool, error) {
	if strings.TrimSpace(cfg.DeviceID) != "" {
		return false, nil
	}
	cfg.DeviceID = uuid.NewString()
	if err := l.SaveDeviceID(cfg.DeviceID); err != nil {
		return true, err
	}
	return true, nil
}

// ParseArgs parses os.Args, exiting on --help or invalid flags.
func ParseArgs() *model.Args {
	var args model.Args
	arg.MustParse(&args)
	return &args
}

// ParseArgsFrom parses argv without exiting.
func ParseArgsFrom(argv []string) (*model.Args, error) {
	var args model.Args
	p, err := arg.NewParser(arg.Config{Program: appName}, &args)
	if err != nil {
		return nil, err
	}
	if err := p.Parse(argv); err != nil {
		return nil, err
	}
	return &args, nil
}

// Apply overlays command-line flags on cfg.
func Apply(cfg *model.Config, args *model.Args) {
	if args.OutPath != "" {
		cfg.Download.OutPath = args.OutPath
	}
	if args.Username != "" {
		cfg.Username = args.Username
	}
	if args.Password != "" {
		cfg.Password = args.Password
	}
	if args.Market != "" {
		cfg.Market = args.Market
	}
	if args.SFW {
		cfg.Search.SFW = true
	}
	if args.Audiobook != nil {
		cfg.Download.Audiobook = *args.Audiobook
	}
	if args.Ebook != nil {
		cfg.Download.Ebook = *args.Ebook
	}
	if args.Workers > 0 {
		cfg.Download.Workers = args.Workers
	}
	if len(args.Languages) > 0 {
		cfg.Search.Languages = args.Languages
	}
}

// Normalize trims values, expands "~" and validates cfg.
func Normalize(cfg *model.Config) error {
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Market = strings.TrimSpace(cfg.Market)
	if cfg.Market == "" {
		cfg.Market = model.DefaultMarket
	}
	cfg.Search.Languages = helpers.Dedupe(cfg.Search.Languages)
	if len(cfg.Search.Languages) == 0 {
		cfg.Search.Languages = []string{model.DefaultLanguage}
	}
	if cfg.Search.PageSize < 1 {
		return fmt.Errorf("search.page_size must be positive, got %d", cfg.Search.PageSize)
	}
	if cfg.Download.Workers < 1 {
		return fmt.Errorf("download.workers must be at least 1, got %d", cfg.Download.Workers)
	}
	policy, ok := model.ParseSizePolicy(cfg.Download.SizePolicy)
	if !ok {
		return fmt.Errorf("invalid download.size_policy: %q (must be ignore, warn, or enforce)", cfg.Download.SizePolicy)
	}
	cfg.Download.SizePolicy = string(policy)
	if !cfg.Download.Audiobook && !cfg.Download.Ebook {
		return errors.New("both audiobook and ebook downloads are disabled")
	}

	var err error
	for _, p := range []*string{&cfg.Download.OutPath, &cfg.Logging.File, &cfg.Logging.APIFile, &cfg.Paths.TokenFile, &cfg.Paths.HistoryFile} {
		*p = strings.TrimSpace(*p)
		if *p, err = helpers.ExpandHome(*p); err != nil {
			return err
		}
		if err := helpers.ValidatePath(*p); err != nil {
			return err
		}
	}
	if cfg.Download.OutPath == "" {
		cfg.Download.OutPath = DefaultConfig().Download.OutPath
	}
	return nil
}
