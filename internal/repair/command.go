package repair

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/srcfix/internal/utils"
)

const (
	commandUseConstant                 = "source-repair [directory]"
	commandShortDescriptionConstant    = "Repair source files corrupted by split access modifiers"
	commandLongDescriptionConstant     = "source-repair scans a sources directory for identifiers split around an access-modifier fragment, rewrites affected files in place, and verifies no corruption markers remain."
	rulesFlagNameConstant              = "rules"
	rulesFlagDescriptionConstant       = "Path to a YAML file with additional pattern/replacement rules"
	checkFlagNameConstant              = "check"
	checkFlagDescriptionConstant       = "Report files that would change without writing them"
	extensionsFlagNameConstant         = "extensions"
	extensionsFlagDescriptionConstant  = "File extensions to scan (default .swift)"
	rulesFileOpenErrorTemplateConstant = "failed to open rules file %s: %w"

	configurationFileAppliedMessageConstant = "configuration file applied"
	logFieldConfigurationFileConstant       = "configuration_file"
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the source-repair command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	FileSystem            afero.Fs
}

// Build constructs the source-repair command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}

	command.Flags().String(rulesFlagNameConstant, "", rulesFlagDescriptionConstant)
	command.Flags().Bool(checkFlagNameConstant, false, checkFlagDescriptionConstant)
	command.Flags().StringSlice(extensionsFlagNameConstant, nil, extensionsFlagDescriptionConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	contextAccessor := utils.NewCommandContextAccessor()
	if configurationFilePath, configurationFilePathAvailable := contextAccessor.ConfigurationFilePath(command.Context()); configurationFilePathAvailable && len(configurationFilePath) > 0 {
		logger.Debug(configurationFileAppliedMessageConstant, zap.String(logFieldConfigurationFileConstant, configurationFilePath))
	}

	sourcesDirectory := configuration.SourcesDirectory
	if len(arguments) > 0 && len(strings.TrimSpace(arguments[0])) > 0 {
		sourcesDirectory = strings.TrimSpace(arguments[0])
	}

	rulesFilePath := configuration.RulesFilePath
	if command.Flags().Changed(rulesFlagNameConstant) {
		flagValue, flagError := command.Flags().GetString(rulesFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		rulesFilePath = strings.TrimSpace(flagValue)
	}

	fileExtensions := configuration.FileExtensions
	if command.Flags().Changed(extensionsFlagNameConstant) {
		flagValues, flagError := command.Flags().GetStringSlice(extensionsFlagNameConstant)
		if flagError != nil {
			return flagError
		}
		fileExtensions = sanitizeFileExtensions(flagValues)
	}

	checkOnly, checkFlagError := command.Flags().GetBool(checkFlagNameConstant)
	if checkFlagError != nil {
		return checkFlagError
	}

	fileSystem := builder.resolveFileSystem()

	ruleSet := DefaultRuleSet()
	if len(rulesFilePath) > 0 {
		ruleFile, openError := fileSystem.Open(rulesFilePath)
		if openError != nil {
			return fmt.Errorf(rulesFileOpenErrorTemplateConstant, rulesFilePath, openError)
		}
		additionalRules, loadError := LoadRewriteRules(ruleFile)
		closeError := ruleFile.Close()
		if loadError != nil {
			return loadError
		}
		if closeError != nil {
			return closeError
		}
		if extendError := ruleSet.Extend(additionalRules); extendError != nil {
			return extendError
		}
	}

	engine, engineError := NewEngine(ruleSet)
	if engineError != nil {
		return engineError
	}

	service, serviceCreationError := NewService(Dependencies{
		FileSystem:   fileSystem,
		Engine:       engine,
		Logger:       logger,
		OutputWriter: utils.NewFlushingWriter(command.OutOrStdout()),
		ErrorWriter:  command.ErrOrStderr(),
	})
	if serviceCreationError != nil {
		return serviceCreationError
	}

	_, repairError := service.Repair(command.Context(), Options{
		SourcesDirectory: sourcesDirectory,
		FileExtensions:   fileExtensions,
		CheckOnly:        checkOnly,
	})
	return repairError
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveFileSystem() afero.Fs {
	if builder.FileSystem == nil {
		return afero.NewOsFs()
	}
	return builder.FileSystem
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
