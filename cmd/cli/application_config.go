package cli

import (
	_ "embed"
)

//go:embed config.yaml
var embeddedDefaultConfiguration []byte

// EmbeddedDefaultConfiguration returns the built-in configuration content and
// its format. The content is the lowest-precedence configuration layer.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return embeddedDefaultConfiguration, configurationTypeConstant
}

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Build  BuildConfiguration             `mapstructure:"build"`
}

// ApplicationCommonConfiguration stores logging defaults shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// BuildConfiguration lists the tool commands the build pipeline runs.
type BuildConfiguration struct {
	Tools []ToolCommandConfiguration `mapstructure:"tools"`
}

// ToolCommandConfiguration binds a pipeline task name to the external command
// executed for it. Passthrough tools report their exit status through the
// shared exit status registry instead of failing the pipeline directly.
type ToolCommandConfiguration struct {
	Name        string   `mapstructure:"name"`
	Command     []string `mapstructure:"command"`
	Passthrough bool     `mapstructure:"passthrough"`
}
