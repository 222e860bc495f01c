package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the chat extractor
type Config struct {
	// Conversation to extract
	Target TargetConfig `yaml:"target" json:"target"`

	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Scroll loop settings
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`

	// DOM heuristics
	Scanner ScannerConfig `yaml:"scanner" json:"scanner"`

	// Line delivery
	Sink SinkConfig `yaml:"sink" json:"sink"`

	// Transcript export
	Output OutputConfig `yaml:"output" json:"output"`

	// Session journal
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Progress display
	UI UIConfig `yaml:"ui" json:"ui"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// TargetConfig identifies the conversation page
type TargetConfig struct {
	URL  string `yaml:"url" json:"url"`
	Name string `yaml:"name" json:"name"`
}

// BrowserConfig holds browser launch and attach settings
type BrowserConfig struct {
	ControlURL      string        `yaml:"control_url" json:"control_url"`
	Headless        bool          `yaml:"headless" json:"headless"`
	Stealth         bool          `yaml:"stealth" json:"stealth"`
	Bin             string        `yaml:"bin" json:"bin"`
	UserDataDir     string        `yaml:"user_data_dir" json:"user_data_dir"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout" json:"navigate_timeout"`
	Profile         string        `yaml:"profile" json:"profile"`
	ReuseTab        bool          `yaml:"reuse_tab" json:"reuse_tab"`
}

// ExtractionConfig holds the scroll loop parameters
type ExtractionConfig struct {
	DelayMin            time.Duration `yaml:"delay_min" json:"delay_min"`
	DelayMax            time.Duration `yaml:"delay_max" json:"delay_max"`
	IncludeDates        bool          `yaml:"include_dates" json:"include_dates"`
	IncludeTimestamps   bool          `yaml:"include_timestamps" json:"include_timestamps"`
	MaxIterations       int           `yaml:"max_iterations" json:"max_iterations"`
	NoProgressThreshold int           `yaml:"no_progress_threshold" json:"no_progress_threshold"`
}

// ContainerStrategyConfig is one entry of the container cascade.
// Kind is "selector" (Selectors are tried in order) or "layout".
type ContainerStrategyConfig struct {
	Name      string   `yaml:"name" json:"name"`
	Kind      string   `yaml:"kind" json:"kind"`
	Selectors []string `yaml:"selectors" json:"selectors"`
}

// LayoutConfig bounds the geometry of a layout-detected container,
// expressed as fractions of the viewport
type LayoutConfig struct {
	MinWidth  float64 `yaml:"min_width" json:"min_width"`
	MaxWidth  float64 `yaml:"max_width" json:"max_width"`
	MinLeft   float64 `yaml:"min_left" json:"min_left"`
	MaxLeft   float64 `yaml:"max_left" json:"max_left"`
	MinHeight float64 `yaml:"min_height" json:"min_height"`
}

// SenderConfig holds sender inference thresholds
type SenderConfig struct {
	ViewerMinX      float64  `yaml:"viewer_min_x" json:"viewer_min_x"`
	CounterpartMaxX float64  `yaml:"counterpart_max_x" json:"counterpart_max_x"`
	ViewerAliases   []string `yaml:"viewer_aliases" json:"viewer_aliases"`
	LabelMaxLength  int      `yaml:"label_max_length" json:"label_max_length"`
}

// NoiseConfig lists UI chrome text that is never a message
type NoiseConfig struct {
	Exact    []string `yaml:"exact" json:"exact"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// ScannerConfig holds the selector cascades and classification limits
type ScannerConfig struct {
	Containers          []ContainerStrategyConfig `yaml:"containers" json:"containers"`
	Layout              LayoutConfig              `yaml:"layout" json:"layout"`
	Candidates          []string                  `yaml:"candidates" json:"candidates"`
	Labels              []string                  `yaml:"labels" json:"labels"`
	Counterpart         []string                  `yaml:"counterpart" json:"counterpart"`
	Sender              SenderConfig              `yaml:"sender" json:"sender"`
	Noise               NoiseConfig               `yaml:"noise" json:"noise"`
	MaxContentLength    int                       `yaml:"max_content_length" json:"max_content_length"`
	DateMarkerMaxLength int                       `yaml:"date_marker_max_length" json:"date_marker_max_length"`
	FingerprintCapacity int                       `yaml:"fingerprint_capacity" json:"fingerprint_capacity"`
}

// HTTPSinkConfig configures the local HTTP line receiver
type HTTPSinkConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	URL               string        `yaml:"url" json:"url"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" json:"burst"`
	// Limiter is token_bucket or sliding. A sliding window allows
	// requests_per_second * window requests inside any window.
	Limiter string        `yaml:"limiter" json:"limiter"`
	Window  time.Duration `yaml:"window" json:"window"`
}

// FileSinkConfig configures the append-only line file
type FileSinkConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// SinkConfig holds line delivery settings
type SinkConfig struct {
	HTTP      HTTPSinkConfig `yaml:"http" json:"http"`
	File      FileSinkConfig `yaml:"file" json:"file"`
	Stdout    bool           `yaml:"stdout" json:"stdout"`
	Workers   int            `yaml:"workers" json:"workers"`
	QueueSize int            `yaml:"queue_size" json:"queue_size"`
}

// OutputConfig holds transcript export settings
type OutputConfig struct {
	Directory string   `yaml:"directory" json:"directory"`
	Order     string   `yaml:"order" json:"order"`
	Formats   []string `yaml:"formats" json:"formats"`
}

// CheckpointConfig holds session journal settings
type CheckpointConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Resume    bool   `yaml:"resume" json:"resume"`
	Directory string `yaml:"directory" json:"directory"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled    bool `yaml:"enabled" json:"enabled"`
	OnComplete bool `yaml:"on_complete" json:"on_complete"`
	OnError    bool `yaml:"on_error" json:"on_error"`
}

// UIConfig selects the progress display
type UIConfig struct {
	Mode string `yaml:"mode" json:"mode"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Output orders
const (
	OrderDiscovery     = "discovery"
	OrderChronological = "chronological"
)

// HTTP sink limiters
const (
	LimiterTokenBucket = "token_bucket"
	LimiterSliding     = "sliding"
)

// UI modes
const (
	UIModeAuto  = "auto"
	UIModePlain = "plain"
	UIModeTUI   = "tui"
	UIModeQuiet = "quiet"
)

// Container strategy kinds
const (
	StrategySelector = "selector"
	StrategyLayout   = "layout"
)

// DefaultScannerConfig returns the compiled-in heuristics
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Containers: []ContainerStrategyConfig{
			{Name: "main-grid", Kind: StrategySelector, Selectors: []string{`[role="main"] [role="grid"]`}},
			{Name: "log", Kind: StrategySelector, Selectors: []string{`[role="log"]`}},
			{Name: "conversation-label", Kind: StrategySelector, Selectors: []string{
				`[aria-label*="Messages in conversation"]`,
				`[aria-label*="Conversation"]`,
			}},
			{Name: "test-id", Kind: StrategySelector, Selectors: []string{
				`[data-testid*="message-container"]`,
				`[data-testid*="conversation"]`,
			}},
			{Name: "layout", Kind: StrategyLayout},
		},
		Layout: LayoutConfig{
			MinWidth:  0.3,
			MaxWidth:  0.8,
			MinLeft:   0.15,
			MaxLeft:   0.5,
			MinHeight: 0.5,
		},
		Candidates: []string{
			`[role="row"]`,
			`[role="gridcell"]`,
			`[data-testid*="message"]`,
			`[class*="message"]`,
			`div[dir="auto"]`,
		},
		Labels: []string{
			`[data-testid*="sender"]`,
			`[data-testid*="author"]`,
			`h4`,
			`h5`,
		},
		Counterpart: []string{
			`[role="main"] h1`,
			`[role="main"] h2`,
			`header h1`,
			`[data-testid="conversation-title"]`,
			`h1`,
		},
		Sender: SenderConfig{
			ViewerMinX:      0.6,
			CounterpartMaxX: 0.4,
			ViewerAliases:   []string{"You", "You sent"},
			LabelMaxLength:  50,
		},
		Noise: NoiseConfig{
			Exact: []string{
				"Seen", "Delivered", "Sent", "Read", "Sending", "Sending...",
				"Typing", "Typing...", "Edited", "Reply", "React", "Forward",
				"More", "Like", "Enter", "Message", "Active now", "Loading...",
				"Press enter to send", "New messages",
			},
			Patterns: []string{
				`(?i)^seen by .+$`,
				`(?i)^active \d+\s?[mhd] ago$`,
				`(?i)^(sent|seen|delivered) \d+\s?[smhdw]( ago)?$`,
				`(?i)^\d+ (new|unread) messages?$`,
				`(?i)^.{1,50} is typing\.*$`,
				`(?i)^(you|.{1,50}) reacted .{1,4} to your message$`,
			},
		},
		MaxContentLength:    5000,
		DateMarkerMaxLength: 100,
		FingerprintCapacity: 20000,
	}
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:        false,
			Stealth:         true,
			NavigateTimeout: 60 * time.Second,
		},
		Extraction: ExtractionConfig{
			DelayMin:            1 * time.Second,
			DelayMax:            5 * time.Second,
			IncludeDates:        true,
			IncludeTimestamps:   true,
			MaxIterations:       500,
			NoProgressThreshold: 10,
		},
		Scanner: DefaultScannerConfig(),
		Sink: SinkConfig{
			HTTP: HTTPSinkConfig{
				Enabled:           false,
				URL:               "http://127.0.0.1:8765/lines",
				Timeout:           10 * time.Second,
				MaxRetries:        3,
				RequestsPerSecond: 20,
				Burst:             5,
				Limiter:           LimiterTokenBucket,
				Window:            time.Minute,
			},
			File: FileSinkConfig{
				Enabled: false,
				Path:    "./chatscrape-lines.txt",
			},
			Stdout:    true,
			Workers:   1,
			QueueSize: 1024,
		},
		Output: OutputConfig{
			Directory: "./transcripts",
			Order:     OrderDiscovery,
			Formats:   []string{"txt"},
		},
		Checkpoint: CheckpointConfig{
			Enabled: true,
			Resume:  false,
		},
		Notifications: NotificationConfig{
			Enabled:    true,
			OnComplete: true,
			OnError:    true,
		},
		UI: UIConfig{
			Mode: UIModeAuto,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("CHATSCRAPE_URL"); v != "" {
		c.Target.URL = v
	}
	if v := os.Getenv("CHATSCRAPE_NAME"); v != "" {
		c.Target.Name = v
	}

	// Browser
	if v := os.Getenv("CHATSCRAPE_CONTROL_URL"); v != "" {
		c.Browser.ControlURL = v
	}
	if v := os.Getenv("CHATSCRAPE_HEADLESS"); v != "" {
		c.Browser.Headless = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("CHATSCRAPE_BROWSER_BIN"); v != "" {
		c.Browser.Bin = v
	}
	if v := os.Getenv("CHATSCRAPE_PROFILE"); v != "" {
		c.Browser.Profile = v
	}

	// Extraction
	if err := envDuration("CHATSCRAPE_DELAY_MIN", &c.Extraction.DelayMin); err != nil {
		return err
	}
	if err := envDuration("CHATSCRAPE_DELAY_MAX", &c.Extraction.DelayMax); err != nil {
		return err
	}
	if err := envInt("CHATSCRAPE_MAX_ITERATIONS", &c.Extraction.MaxIterations); err != nil {
		return err
	}
	if err := envInt("CHATSCRAPE_NO_PROGRESS_THRESHOLD", &c.Extraction.NoProgressThreshold); err != nil {
		return err
	}

	// Sinks
	if v := os.Getenv("CHATSCRAPE_SINK_URL"); v != "" {
		c.Sink.HTTP.URL = v
		c.Sink.HTTP.Enabled = true
	}
	if v := os.Getenv("CHATSCRAPE_SINK_FILE"); v != "" {
		c.Sink.File.Path = v
		c.Sink.File.Enabled = true
	}
	if v := os.Getenv("CHATSCRAPE_SINK_LIMITER"); v != "" {
		c.Sink.HTTP.Limiter = v
	}

	// Output directory
	if v := os.Getenv("CHATSCRAPE_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}

	if v := os.Getenv("CHATSCRAPE_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("CHATSCRAPE_UI_MODE"); v != "" {
		c.UI.Mode = v
	}
	if v := os.Getenv("CHATSCRAPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".chatscrape.yaml",
		".chatscrape.yml",
		filepath.Join(home, ".config", "chatscrape", "config.yaml"),
		filepath.Join(home, ".config", "chatscrape", "config.yml"),
		filepath.Join(home, ".chatscrape.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// Extraction loop
	e := c.Extraction
	if e.DelayMin < 0 {
		errs = append(errs, errors.New("delay_min cannot be negative"))
	}
	if e.DelayMax < e.DelayMin {
		errs = append(errs, errors.New("delay_max must not be less than delay_min"))
	}
	if e.MaxIterations < 1 {
		errs = append(errs, errors.New("max_iterations must be at least 1"))
	}
	if e.NoProgressThreshold < 1 {
		errs = append(errs, errors.New("no_progress_threshold must be at least 1"))
	}

	errs = append(errs, c.Scanner.validate()...)

	// Sinks
	if c.Sink.HTTP.Enabled && c.Sink.HTTP.URL == "" {
		errs = append(errs, errors.New("sink.http.url is required when the HTTP sink is enabled"))
	}
	if c.Sink.HTTP.MaxRetries < 0 {
		errs = append(errs, errors.New("sink.http.max_retries cannot be negative"))
	}
	switch c.Sink.HTTP.Limiter {
	case "", LimiterTokenBucket:
	case LimiterSliding:
		if c.Sink.HTTP.Window <= 0 {
			errs = append(errs, errors.New("sink.http.window must be positive for the sliding limiter"))
		}
	default:
		errs = append(errs, fmt.Errorf("sink.http.limiter must be %s or %s", LimiterTokenBucket, LimiterSliding))
	}
	if c.Sink.File.Enabled && c.Sink.File.Path == "" {
		errs = append(errs, errors.New("sink.file.path is required when the file sink is enabled"))
	}
	if c.Sink.Workers < 1 {
		errs = append(errs, errors.New("sink.workers must be at least 1"))
	}
	if c.Sink.QueueSize < 1 {
		errs = append(errs, errors.New("sink.queue_size must be at least 1"))
	}

	// Output
	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	switch c.Output.Order {
	case OrderDiscovery, OrderChronological:
	default:
		errs = append(errs, fmt.Errorf("invalid output order %q", c.Output.Order))
	}
	for _, f := range c.Output.Formats {
		if f != "txt" && f != "json" {
			errs = append(errs, fmt.Errorf("invalid output format %q", f))
		}
	}

	switch strings.ToLower(c.UI.Mode) {
	case UIModeAuto, UIModePlain, UIModeTUI, UIModeQuiet:
	default:
		errs = append(errs, fmt.Errorf("invalid ui mode %q", c.UI.Mode))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

func (s ScannerConfig) validate() []error {
	var errs []error

	if len(s.Candidates) == 0 {
		errs = append(errs, errors.New("scanner.candidates must not be empty"))
	}
	for i, strategy := range s.Containers {
		switch strategy.Kind {
		case StrategySelector:
			if len(strategy.Selectors) == 0 {
				errs = append(errs, fmt.Errorf("scanner.containers[%d] has no selectors", i))
			}
		case StrategyLayout:
		default:
			errs = append(errs, fmt.Errorf("scanner.containers[%d] has unknown kind %q", i, strategy.Kind))
		}
	}

	if s.Sender.ViewerMinX <= s.Sender.CounterpartMaxX {
		errs = append(errs, errors.New("scanner.sender.viewer_min_x must exceed counterpart_max_x"))
	}
	if s.Sender.ViewerMinX > 1 || s.Sender.CounterpartMaxX < 0 {
		errs = append(errs, errors.New("scanner.sender thresholds must be fractions between 0 and 1"))
	}
	if s.Sender.LabelMaxLength < 1 {
		errs = append(errs, errors.New("scanner.sender.label_max_length must be positive"))
	}

	for _, p := range s.Noise.Patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("invalid noise pattern %q: %w", p, err))
		}
	}

	if s.MaxContentLength < 1 {
		errs = append(errs, errors.New("scanner.max_content_length must be positive"))
	}
	if s.DateMarkerMaxLength < 1 {
		errs = append(errs, errors.New("scanner.date_marker_max_length must be positive"))
	}
	if s.FingerprintCapacity < 1 {
		errs = append(errs, errors.New("scanner.fingerprint_capacity must be positive"))
	}

	return errs
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags the user actually set should be present in the map.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["url"].(string); ok && v != "" {
		c.Target.URL = v
	}
	if v, ok := flags["name"].(string); ok && v != "" {
		c.Target.Name = v
	}
	if v, ok := flags["control-url"].(string); ok && v != "" {
		c.Browser.ControlURL = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["profile"].(string); ok && v != "" {
		c.Browser.Profile = v
	}
	if v, ok := flags["delay-min"].(time.Duration); ok {
		c.Extraction.DelayMin = v
	}
	if v, ok := flags["delay-max"].(time.Duration); ok {
		c.Extraction.DelayMax = v
	}
	if v, ok := flags["max-iterations"].(int); ok && v > 0 {
		c.Extraction.MaxIterations = v
	}
	if v, ok := flags["no-progress-threshold"].(int); ok && v > 0 {
		c.Extraction.NoProgressThreshold = v
	}
	if v, ok := flags["no-dates"].(bool); ok && v {
		c.Extraction.IncludeDates = false
	}
	if v, ok := flags["no-timestamps"].(bool); ok && v {
		c.Extraction.IncludeTimestamps = false
	}
	if v, ok := flags["sink-url"].(string); ok && v != "" {
		c.Sink.HTTP.URL = v
		c.Sink.HTTP.Enabled = true
	}
	if v, ok := flags["sink-file"].(string); ok && v != "" {
		c.Sink.File.Path = v
		c.Sink.File.Enabled = true
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["order"].(string); ok && v != "" {
		c.Output.Order = v
	}
	if v, ok := flags["resume"].(bool); ok {
		c.Checkpoint.Resume = v
	}
	if v, ok := flags["ui"].(string); ok && v != "" {
		c.UI.Mode = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".chatscrape.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
