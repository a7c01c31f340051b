package types

// SeedProfile defines one monitored seed keyword. It is the core entry of
// the configs/seeds.json data file.
type SeedProfile struct {
	Seed     string `json:"seed"`               // the root phrase to expand
	Enabled  bool   `json:"enabled"`            // whether scheduled runs include it
	Schedule string `json:"schedule,omitempty"` // cron expression, e.g. "0 12 * * *"
	Language string `json:"language,omitempty"` // overrides [search] hl for this seed
	Region   string `json:"region,omitempty"`   // overrides [search] gl for this seed
}

// MonitorConf contains run-level behaviour configuration.
type MonitorConf struct {
	Mode          string `ini:"mode"`           // sequential, pool, async
	Workers       int    `ini:"workers"`        // worker-pool size
	Concurrency   int    `ini:"concurrency"`    // async in-flight limit
	RetentionDays int    `ini:"retention_days"` // snapshot retention window
	TrendDays     int    `ini:"trend_days"`     // multi-day trend window
}

// RequestConf contains pacing and transport configuration.
type RequestConf struct {
	MinDelayMs     int  `ini:"min_delay_ms"`
	MaxDelayMs     int  `ini:"max_delay_ms"`
	MaxDelayCapMs  int  `ini:"max_delay_cap_ms"` // hard ceiling for adaptive widening
	TimeoutSeconds int  `ini:"timeout_seconds"`
	MaxRetries     int  `ini:"max_retries"` // transport-level retries on 429/5xx
	DynamicDelay   bool `ini:"dynamic_delay"`
}

// ProxyConf contains proxy pool configuration.
type ProxyConf struct {
	Enabled         bool   `ini:"enabled"`
	ListFile        string `ini:"list_file"`        // newline-delimited proxy URLs
	SourceURL       string `ini:"source_url"`       // optional remote proxy source
	MaxFailures     int    `ini:"max_failures"`     // consecutive failures before cooldown
	CooldownMinutes int    `ini:"cooldown_minutes"` // ineligibility window
}

// SearchConf mirrors the four expansion axes plus endpoint parameters.
type SearchConf struct {
	BaseURL              string `ini:"base_url"`
	ClientParam          string `ini:"client"` // engine identity, e.g. "chrome"
	Language             string `ini:"hl"`
	Region               string `ini:"gl"`
	IncludeSingleLetters bool   `ini:"include_single_letters"`
	IncludeDoubleLetters bool   `ini:"include_double_letters"`
	IncludePrefix        bool   `ini:"include_prefix"`
	IncludeSuffix        bool   `ini:"include_suffix"`
	UserAgentFile        string `ini:"user_agent_file"`
}

// StorageConf contains snapshot store configuration.
type StorageConf struct {
	DataDir string `ini:"data_dir"`
}

// LogConf contains logging specific configuration.
type LogConf struct {
	Level      string `ini:"level"`
	Dir        string `ini:"dir"`         // empty disables the file sink
	MaxSizeMB  int    `ini:"max_size_mb"` // rotation threshold per file
	MaxBackups int    `ini:"max_backups"`
}

// Config is the unified behaviour configuration, mapped from longtail.ini.
// Seed profiles live in a separate JSON data file, not here.
type Config struct {
	MonitorConf MonitorConf `ini:"monitor"`
	RequestConf RequestConf `ini:"request"`
	ProxyConf   ProxyConf   `ini:"proxy"`
	SearchConf  SearchConf  `ini:"search"`
	StorageConf StorageConf `ini:"storage"`
	LogConf     LogConf     `ini:"log"`
}

// ApplyDefaults fills zero values with the documented defaults so a sparse
// ini file still yields a runnable configuration.
func (c *Config) ApplyDefaults() {
	if c.MonitorConf.Mode == "" {
		c.MonitorConf.Mode = "sequential"
	}
	if c.MonitorConf.Workers <= 0 {
		c.MonitorConf.Workers = 3
	}
	if c.MonitorConf.Concurrency <= 0 {
		c.MonitorConf.Concurrency = 5
	}
	if c.MonitorConf.RetentionDays <= 0 {
		c.MonitorConf.RetentionDays = 30
	}
	if c.MonitorConf.TrendDays <= 0 {
		c.MonitorConf.TrendDays = 7
	}
	if c.RequestConf.MinDelayMs <= 0 {
		c.RequestConf.MinDelayMs = 1000
	}
	if c.RequestConf.MaxDelayMs <= 0 {
		c.RequestConf.MaxDelayMs = 3000
	}
	if c.RequestConf.MaxDelayCapMs <= 0 {
		c.RequestConf.MaxDelayCapMs = 30000
	}
	if c.RequestConf.TimeoutSeconds <= 0 {
		c.RequestConf.TimeoutSeconds = 10
	}
	if c.RequestConf.MaxRetries < 0 {
		c.RequestConf.MaxRetries = 3
	}
	if c.ProxyConf.MaxFailures <= 0 {
		c.ProxyConf.MaxFailures = 3
	}
	if c.ProxyConf.CooldownMinutes <= 0 {
		c.ProxyConf.CooldownMinutes = 10
	}
	if c.SearchConf.BaseURL == "" {
		c.SearchConf.BaseURL = "https://suggestqueries.google.com/complete/search"
	}
	if c.SearchConf.ClientParam == "" {
		c.SearchConf.ClientParam = "chrome"
	}
	if c.SearchConf.Language == "" {
		c.SearchConf.Language = "en"
	}
	if c.StorageConf.DataDir == "" {
		c.StorageConf.DataDir = "data"
	}
	if c.LogConf.Level == "" {
		c.LogConf.Level = "info"
	}
	if c.LogConf.MaxSizeMB <= 0 {
		c.LogConf.MaxSizeMB = 50
	}
	if c.LogConf.MaxBackups <= 0 {
		c.LogConf.MaxBackups = 7
	}
}
