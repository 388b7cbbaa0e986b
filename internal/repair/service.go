package repair

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	sourcesDirectoryMissingMessageConstant = "sources directory not found"
	engineMissingMessageConstant           = "repair engine not configured"
	fileSystemMissingMessageConstant       = "file system not configured"
	sourcesWalkErrorTemplateConstant       = "failed to scan sources directory: %w"
	backupWriteErrorTemplateConstant       = "failed to write backup: %w"
	repairedWriteErrorTemplateConstant     = "failed to write repaired content: %w"
	backupFileSuffixConstant               = ".bak"
	scanStartedTemplateConstant            = "scanning %d source files for malformed patterns\n"
	fileRepairedTemplateConstant           = "REPAIRED: %s (%d lines changed)\n"
	fileWouldRepairTemplateConstant        = "WOULD REPAIR: %s (%d lines changed)\n"
	fileSkippedTemplateConstant            = "SKIPPED: %s (%v)\n"
	summaryTemplateConstant                = "\nrepaired %d of %d files\n"
	residualHeaderTemplateConstant         = "\nWARNING: %d files still contain malformed patterns:\n"
	residualEntryTemplateConstant          = "  - %s\n"
	residualCleanMessageConstant           = "all malformed patterns fixed\n"
	residualListLimitConstant              = 5
	newlineSeparatorConstant               = "\n"
	logMessageRepairCompletedConstant      = "source repair completed"
	logMessageFileProcessingFailedConstant = "file processing failed"
	logFieldPathConstant                   = "path"
	logFieldFilesScannedConstant           = "files_scanned"
	logFieldFilesRepairedConstant          = "files_repaired"
	logFieldResidualFilesConstant          = "residual_files"
)

// ErrSourcesDirectoryMissing indicates the configured sources directory does not exist.
var ErrSourcesDirectoryMissing = errors.New(sourcesDirectoryMissingMessageConstant)

// ErrEngineNotConfigured indicates the repair engine dependency was missing.
var ErrEngineNotConfigured = errors.New(engineMissingMessageConstant)

// ErrFileSystemNotConfigured indicates the file system dependency was missing.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// Dependencies enumerates external collaborators required for repair operations.
type Dependencies struct {
	FileSystem   afero.Fs
	Engine       *Engine
	Logger       *zap.Logger
	OutputWriter io.Writer
	ErrorWriter  io.Writer
}

// Options configures a repair pass.
type Options struct {
	SourcesDirectory string
	FileExtensions   []string
	CheckOnly        bool
}

// FileOutcome records what happened to a single source file during a pass.
type FileOutcome struct {
	Path         string
	Repaired     bool
	ChangedLines int
	Err          error
}

// Result captures the observable outcomes of a repair pass.
type Result struct {
	FilesScanned  int
	FilesRepaired int
	FileOutcomes  []FileOutcome
	ResidualFiles []string
}

// Service walks a sources tree and repairs corrupted files one at a time.
type Service struct {
	fileSystem   afero.Fs
	engine       *Engine
	logger       *zap.Logger
	outputWriter io.Writer
	errorWriter  io.Writer
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.Engine == nil {
		return nil, ErrEngineNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	outputWriter := dependencies.OutputWriter
	if outputWriter == nil {
		outputWriter = io.Discard
	}
	errorWriter := dependencies.ErrorWriter
	if errorWriter == nil {
		errorWriter = io.Discard
	}

	return &Service{
		fileSystem:   dependencies.FileSystem,
		engine:       dependencies.Engine,
		logger:       logger,
		outputWriter: outputWriter,
		errorWriter:  errorWriter,
	}, nil
}

// Repair processes every matching file under the sources directory and
// verifies afterwards that no corruption markers remain.
func (service *Service) Repair(executionContext context.Context, options Options) (Result, error) {
	trimmedSourcesDirectory := strings.TrimSpace(options.SourcesDirectory)
	if len(trimmedSourcesDirectory) == 0 {
		return Result{}, ErrSourcesDirectoryMissing
	}

	directoryExists, existsError := afero.DirExists(service.fileSystem, trimmedSourcesDirectory)
	if existsError != nil {
		return Result{}, existsError
	}
	if !directoryExists {
		return Result{}, ErrSourcesDirectoryMissing
	}

	sourceFiles, discoveryError := service.discoverSourceFiles(trimmedSourcesDirectory, options.FileExtensions)
	if discoveryError != nil {
		return Result{}, fmt.Errorf(sourcesWalkErrorTemplateConstant, discoveryError)
	}

	fmt.Fprintf(service.outputWriter, scanStartedTemplateConstant, len(sourceFiles))

	result := Result{FilesScanned: len(sourceFiles)}
	for _, sourceFilePath := range sourceFiles {
		if contextError := executionContext.Err(); contextError != nil {
			return result, contextError
		}

		fileOutcome := service.processFile(sourceFilePath, options.CheckOnly)
		result.FileOutcomes = append(result.FileOutcomes, fileOutcome)
		if fileOutcome.Err != nil {
			service.logger.Warn(
				logMessageFileProcessingFailedConstant,
				zap.String(logFieldPathConstant, sourceFilePath),
				zap.Error(fileOutcome.Err),
			)
			fmt.Fprintf(service.errorWriter, fileSkippedTemplateConstant, sourceFilePath, fileOutcome.Err)
			continue
		}
		if fileOutcome.Repaired {
			result.FilesRepaired++
		}
	}

	fmt.Fprintf(service.outputWriter, summaryTemplateConstant, result.FilesRepaired, result.FilesScanned)

	result.ResidualFiles = service.collectResidualFiles(sourceFiles)
	if len(result.ResidualFiles) > 0 {
		fmt.Fprintf(service.outputWriter, residualHeaderTemplateConstant, len(result.ResidualFiles))
		for residualIndex, residualFilePath := range result.ResidualFiles {
			if residualIndex == residualListLimitConstant {
				break
			}
			fmt.Fprintf(service.outputWriter, residualEntryTemplateConstant, residualFilePath)
		}
	} else {
		fmt.Fprint(service.outputWriter, residualCleanMessageConstant)
	}

	service.logger.Info(
		logMessageRepairCompletedConstant,
		zap.Int(logFieldFilesScannedConstant, result.FilesScanned),
		zap.Int(logFieldFilesRepairedConstant, result.FilesRepaired),
		zap.Int(logFieldResidualFilesConstant, len(result.ResidualFiles)),
	)

	return result, nil
}

func (service *Service) discoverSourceFiles(sourcesDirectory string, fileExtensions []string) ([]string, error) {
	selectedExtensions := fileExtensions
	if len(selectedExtensions) == 0 {
		selectedExtensions = []string{defaultFileExtensionConstant}
	}

	var sourceFiles []string
	walkError := afero.Walk(service.fileSystem, sourcesDirectory, func(path string, fileInformation os.FileInfo, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if fileInformation.IsDir() {
			return nil
		}
		if !matchesExtension(path, selectedExtensions) {
			return nil
		}
		sourceFiles = append(sourceFiles, path)
		return nil
	})
	if walkError != nil {
		return nil, walkError
	}

	sort.Strings(sourceFiles)
	return sourceFiles, nil
}

func matchesExtension(path string, fileExtensions []string) bool {
	pathExtension := filepath.Ext(path)
	for _, fileExtension := range fileExtensions {
		if strings.EqualFold(pathExtension, fileExtension) {
			return true
		}
	}
	return false
}

// processFile reports whether the file was repaired (or would be, in check mode).
func (service *Service) processFile(sourceFilePath string, checkOnly bool) FileOutcome {
	fileOutcome := FileOutcome{Path: sourceFilePath}

	originalContent, readError := afero.ReadFile(service.fileSystem, sourceFilePath)
	if readError != nil {
		fileOutcome.Err = readError
		return fileOutcome
	}

	transformedContent := service.engine.Apply(string(originalContent))
	if transformedContent == string(originalContent) {
		return fileOutcome
	}

	fileOutcome.ChangedLines = countChangedLines(string(originalContent), transformedContent)

	if checkOnly {
		fmt.Fprintf(service.outputWriter, fileWouldRepairTemplateConstant, sourceFilePath, fileOutcome.ChangedLines)
		fileOutcome.Repaired = true
		return fileOutcome
	}

	if writeError := service.writeWithBackup(sourceFilePath, originalContent, []byte(transformedContent)); writeError != nil {
		fileOutcome.Err = writeError
		return fileOutcome
	}

	fmt.Fprintf(service.outputWriter, fileRepairedTemplateConstant, sourceFilePath, fileOutcome.ChangedLines)
	fileOutcome.Repaired = true
	return fileOutcome
}

// writeWithBackup keeps a backup copy alive until the repaired content lands,
// then removes it. A failed write leaves the backup in place.
func (service *Service) writeWithBackup(sourceFilePath string, originalContent []byte, transformedContent []byte) error {
	filePermissions := os.FileMode(0o644)
	if fileInformation, statError := service.fileSystem.Stat(sourceFilePath); statError == nil {
		filePermissions = fileInformation.Mode().Perm()
	}

	backupFilePath := sourceFilePath + backupFileSuffixConstant
	if backupError := afero.WriteFile(service.fileSystem, backupFilePath, originalContent, filePermissions); backupError != nil {
		return fmt.Errorf(backupWriteErrorTemplateConstant, backupError)
	}

	if writeError := afero.WriteFile(service.fileSystem, sourceFilePath, transformedContent, filePermissions); writeError != nil {
		return fmt.Errorf(repairedWriteErrorTemplateConstant, writeError)
	}

	return service.fileSystem.Remove(backupFilePath)
}

func (service *Service) collectResidualFiles(sourceFiles []string) []string {
	var residualFiles []string
	for _, sourceFilePath := range sourceFiles {
		fileContent, readError := afero.ReadFile(service.fileSystem, sourceFilePath)
		if readError != nil {
			continue
		}
		if service.engine.HasResidualCorruption(string(fileContent)) {
			residualFiles = append(residualFiles, sourceFilePath)
		}
	}
	return residualFiles
}

func countChangedLines(originalContent string, transformedContent string) int {
	originalLines := strings.Split(originalContent, newlineSeparatorConstant)
	transformedLines := strings.Split(transformedContent, newlineSeparatorConstant)

	comparedLineCount := len(originalLines)
	if len(transformedLines) < comparedLineCount {
		comparedLineCount = len(transformedLines)
	}

	changedLineCount := 0
	for lineIndex := 0; lineIndex < comparedLineCount; lineIndex++ {
		if originalLines[lineIndex] != transformedLines[lineIndex] {
			changedLineCount++
		}
	}
	return changedLineCount
}
