package repair

import "strings"

const (
	defaultSourcesDirectoryConstant          = "Sources"
	defaultFileExtensionConstant             = ".swift"
	sourcesConfigurationKeySuffixConstant    = ".sources"
	extensionsConfigurationKeySuffixConstant = ".extensions"
	rulesConfigurationKeySuffixConstant      = ".rules"
	extensionPrefixConstant                  = "."
)

// CommandConfiguration captures configuration values for the source-repair command.
type CommandConfiguration struct {
	SourcesDirectory string   `mapstructure:"sources"`
	FileExtensions   []string `mapstructure:"extensions"`
	RulesFilePath    string   `mapstructure:"rules"`
}

// DefaultCommandConfiguration provides baseline configuration values for source repair.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		SourcesDirectory: defaultSourcesDirectoryConstant,
		FileExtensions:   []string{defaultFileExtensionConstant},
		RulesFilePath:    "",
	}
}

// DefaultConfigurationValues exposes defaults keyed for configuration loading.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	return map[string]any{
		configurationKeyPrefix + sourcesConfigurationKeySuffixConstant:    defaultSourcesDirectoryConstant,
		configurationKeyPrefix + extensionsConfigurationKeySuffixConstant: []string{defaultFileExtensionConstant},
		configurationKeyPrefix + rulesConfigurationKeySuffixConstant:      "",
	}
}

// Sanitize trims configured values and normalizes file extensions.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	sanitized.SourcesDirectory = strings.TrimSpace(configuration.SourcesDirectory)
	sanitized.RulesFilePath = strings.TrimSpace(configuration.RulesFilePath)
	sanitized.FileExtensions = sanitizeFileExtensions(configuration.FileExtensions)
	return sanitized
}

func sanitizeFileExtensions(candidateExtensions []string) []string {
	sanitizedExtensions := make([]string, 0, len(candidateExtensions))
	for _, candidateExtension := range candidateExtensions {
		trimmedExtension := strings.TrimSpace(candidateExtension)
		if len(trimmedExtension) == 0 {
			continue
		}
		if !strings.HasPrefix(trimmedExtension, extensionPrefixConstant) {
			trimmedExtension = extensionPrefixConstant + trimmedExtension
		}
		sanitizedExtensions = append(sanitizedExtensions, trimmedExtension)
	}
	if len(sanitizedExtensions) == 0 {
		return nil
	}
	return sanitizedExtensions
}
