package config

// Config is the complete froyodesk configuration.
type Config struct {
	// Platform is the host the run is allowed on.
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Packages configures the package manager and the package list.
	Packages PackagesConfig `yaml:"packages" json:"packages"`

	// DisplayManager configures the graphical login.
	DisplayManager DisplayManagerConfig `yaml:"display_manager" json:"display_manager"`

	// Dotfiles configures the dotfiles repository deployed into the home directory.
	Dotfiles DotfilesConfig `yaml:"dotfiles" json:"dotfiles"`

	// Fonts configures a font archive installed for the user.
	Fonts FontsConfig `yaml:"fonts" json:"fonts"`

	// Tools are installed through their upstream install scripts, one step each.
	Tools []ToolConfig `yaml:"tools" json:"tools" validate:"dive"`

	// Profile lists lines appended to files in the home directory.
	Profile []ProfileConfig `yaml:"profile" json:"profile" validate:"dive"`

	// Shell is the default login shell.
	Shell ShellConfig `yaml:"shell" json:"shell"`

	// Telemetry configures logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`

	// Journal configures the run history database.
	Journal JournalConfig `yaml:"journal" json:"journal"`
}

// PlatformConfig describes the supported host.
type PlatformConfig struct {
	// Distribution is the ID reported by the detector (e.g. "ubuntu").
	Distribution string `yaml:"distribution" json:"distribution" validate:"required"`

	// Detector is the platform detection utility (e.g. "lsb_release").
	Detector string `yaml:"detector" json:"detector" validate:"required"`

	// DetectorArgs make the detector print only the distribution ID.
	DetectorArgs []string `yaml:"detector_args" json:"detector_args"`
}

// PackagesConfig configures package installation.
type PackagesConfig struct {
	// Manager is apt-get, dnf or pacman. Empty means auto-detect.
	Manager string `yaml:"manager" json:"manager" validate:"omitempty,oneof=apt-get dnf pacman"`

	// ListURL is the package list location (http(s), file:// or a path).
	ListURL string `yaml:"list_url" json:"list_url" validate:"required"`
}

// DisplayManagerConfig configures the display manager step.
type DisplayManagerConfig struct {
	// Unit is the systemd unit to enable. Empty disables the step.
	Unit string `yaml:"unit" json:"unit"`

	// Binary must be on PATH before the display manager can be configured.
	Binary string `yaml:"binary" json:"binary" validate:"required_with=Unit"`

	// ConfigPath is written with ConfigContent.
	ConfigPath string `yaml:"config_path" json:"config_path" validate:"omitempty,startswith=/"`

	// ConfigContent is the desired content of ConfigPath.
	ConfigContent string `yaml:"config_content" json:"config_content" validate:"required_with=ConfigPath"`

	// Competing units are disabled when present.
	Competing []string `yaml:"competing" json:"competing"`
}

// DotfilesConfig configures the dotfiles step.
type DotfilesConfig struct {
	// Repo is the git remote. Empty disables the step.
	Repo string `yaml:"repo" json:"repo"`

	// Branch to clone. Empty means the remote's default branch.
	Branch string `yaml:"branch" json:"branch"`

	// Target is a directory relative to the home directory where the
	// checkout is kept. Its content is also copied into the home directory.
	Target string `yaml:"target" json:"target" validate:"required_with=Repo"`
}

// FontsConfig configures the fonts step.
type FontsConfig struct {
	// Name is the directory created under Dir. Empty disables the step.
	Name string `yaml:"name" json:"name"`

	// URL is a zip archive of font files.
	URL string `yaml:"url" json:"url" validate:"required_with=Name,omitempty,url"`

	// Dir is relative to the home directory.
	Dir string `yaml:"dir" json:"dir" validate:"required_with=Name"`
}

// ToolConfig configures one tool installed from an install script.
type ToolConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// Binary marks the tool as installed. "$HOME" is expanded; a bare name
	// is looked up on PATH.
	Binary string `yaml:"binary" json:"binary" validate:"required"`

	// ScriptURL must be https.
	ScriptURL string `yaml:"script_url" json:"script_url" validate:"required,url,startswith=https://"`

	// ScriptArgs are passed to the script. "$HOME" is expanded.
	ScriptArgs []string `yaml:"script_args" json:"script_args"`

	// Version, when set, must appear in the output of Binary VersionArgs for
	// the tool to count as installed.
	Version string `yaml:"version" json:"version"`

	VersionArgs []string `yaml:"version_args" json:"version_args"`
}

// ProfileConfig lists lines that must be present in a file.
type ProfileConfig struct {
	// File is relative to the home directory.
	File string `yaml:"file" json:"file" validate:"required"`

	Lines []string `yaml:"lines" json:"lines" validate:"required,min=1"`
}

// ShellConfig configures the default shell step.
type ShellConfig struct {
	// Path of the login shell. Empty disables the step.
	Path string `yaml:"path" json:"path" validate:"omitempty,startswith=/"`
}

// TelemetryConfig configures logging, metrics and tracing.
type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=trace debug info warn error"`
	LogFormat string `yaml:"log_format" json:"log_format" validate:"omitempty,oneof=console json"`
	LogOutput string `yaml:"log_output" json:"log_output"`

	// MetricsFile is a node-exporter textfile written at the end of the run.
	MetricsFile string `yaml:"metrics_file" json:"metrics_file"`

	// TraceExporter is none, stdout or otlp.
	TraceExporter string `yaml:"trace_exporter" json:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`

	// TraceFile receives stdout exporter output.
	TraceFile string `yaml:"trace_file" json:"trace_file"`

	// TraceEndpoint is the OTLP gRPC endpoint.
	TraceEndpoint string `yaml:"trace_endpoint" json:"trace_endpoint" validate:"required_if=TraceExporter otlp"`
}

// JournalConfig configures the run history database.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path" validate:"required_if=Enabled true"`
}
