package probe

import (
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/srcfix/internal/utils"
)

const (
	commandUseConstant              = "backend-probe"
	commandShortDescriptionConstant = "Check backend connectivity"
	commandLongDescriptionConstant  = "backend-probe issues sequential GET requests against the backend health and API endpoints and reports their status."
	baseURLFlagNameConstant         = "base-url"
	baseURLFlagDescriptionConstant  = "Backend base URL to probe"
	timeoutFlagNameConstant         = "timeout"
	timeoutFlagDescriptionConstant  = "Per-request timeout in seconds"

	configurationFileAppliedMessageConstant = "configuration file applied"
	logFieldConfigurationFileConstant       = "configuration_file"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the backend-probe command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	HTTPClient            HTTPDoer
}

// Build constructs the backend-probe command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	command.Flags().String(baseURLFlagNameConstant, "", baseURLFlagDescriptionConstant)
	command.Flags().Int(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	contextAccessor := utils.NewCommandContextAccessor()
	if configurationFilePath, configurationFilePathAvailable := contextAccessor.ConfigurationFilePath(command.Context()); configurationFilePathAvailable && len(configurationFilePath) > 0 {
		logger.Debug(configurationFileAppliedMessageConstant, zap.String(logFieldConfigurationFileConstant, configurationFilePath))
	}

	baseURL := configuration.BaseURL
	if command.Flags().Changed(baseURLFlagNameConstant) {
		flagValue, flagError := command.Flags().GetString(baseURLFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		baseURL = strings.TrimSpace(flagValue)
	}

	timeoutSeconds := configuration.TimeoutSeconds
	if command.Flags().Changed(timeoutFlagNameConstant) {
		flagValue, flagError := command.Flags().GetInt(timeoutFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		if flagValue > 0 {
			timeoutSeconds = flagValue
		}
	}

	service, serviceCreationError := NewService(Dependencies{
		HTTPClient:   builder.resolveHTTPClient(),
		Logger:       logger,
		OutputWriter: utils.NewFlushingWriter(command.OutOrStdout()),
		ErrorWriter:  command.ErrOrStderr(),
	})
	if serviceCreationError != nil {
		return serviceCreationError
	}

	_, probeError := service.Probe(command.Context(), Options{
		BaseURL: baseURL,
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	})
	return probeError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveHTTPClient() HTTPDoer {
	if builder.HTTPClient == nil {
		return &http.Client{}
	}
	return builder.HTTPClient
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
