package probe

import "strings"

const (
	defaultBaseURLConstant                       = "http://localhost:8000"
	defaultTimeoutSecondsConstant                = 5
	baseURLConfigurationKeySuffixConstant        = ".base_url"
	timeoutSecondsConfigurationKeySuffixConstant = ".timeout_seconds"
)

// CommandConfiguration captures configuration values for the backend-probe command.
type CommandConfiguration struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DefaultCommandConfiguration provides baseline configuration values for the backend probe.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		BaseURL:        defaultBaseURLConstant,
		TimeoutSeconds: defaultTimeoutSecondsConstant,
	}
}

// DefaultConfigurationValues exposes defaults keyed for configuration loading.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + baseURLConfigurationKeySuffixConstant:        defaultBaseURLConstant,
		configurationKeyPrefix + timeoutSecondsConfigurationKeySuffixConstant: defaultTimeoutSecondsConstant,
	}
}

// Sanitize trims configured values and restores defaults for unusable entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.BaseURL = strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(sanitized.BaseURL) == 0 {
		sanitized.BaseURL = defaultBaseURLConstant
	}
	if sanitized.TimeoutSeconds <= 0 {
		sanitized.TimeoutSeconds = defaultTimeoutSecondsConstant
	}
	return sanitized
}
