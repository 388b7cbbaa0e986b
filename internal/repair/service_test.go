package repair_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/temirov/srcfix/internal/repair"
)

const (
	testSourcesDirectoryConstant    = "Sources"
	testCorruptedContentConstant    = "func cpublic reateProject() {\n    let ppublic roject = Project()\n}\n"
	testRepairedContentConstant     = "public func createProject() {\n    let project = Project()\n}\n"
	testUnrepairableContentConstant = "let cpublic ustomValue = 1\n"
)

type failingOpenFileSystem struct {
	afero.Fs
	failingPath string
}

func (fileSystem *failingOpenFileSystem) Open(name string) (afero.File, error) {
	if name == fileSystem.failingPath {
		return nil, errors.New("open denied")
	}
	return fileSystem.Fs.Open(name)
}

type failingWriteFileSystem struct {
	afero.Fs
	failingPath string
}

func (fileSystem *failingWriteFileSystem) OpenFile(name string, flag int, permissions os.FileMode) (afero.File, error) {
	if name == fileSystem.failingPath && flag&os.O_WRONLY != 0 {
		return nil, errors.New("write denied")
	}
	return fileSystem.Fs.OpenFile(name, flag, permissions)
}

func newRepairService(t *testing.T, fileSystem afero.Fs, outputBuffer *bytes.Buffer, errorBuffer *bytes.Buffer) *repair.Service {
	t.Helper()

	engine, engineError := repair.NewEngine(repair.DefaultRuleSet())
	require.NoError(t, engineError)

	service, serviceError := repair.NewService(repair.Dependencies{
		FileSystem:   fileSystem,
		Engine:       engine,
		OutputWriter: outputBuffer,
		ErrorWriter:  errorBuffer,
	})
	require.NoError(t, serviceError)
	return service
}

func TestNewServiceValidatesDependencies(t *testing.T) {
	engine, engineError := repair.NewEngine(repair.DefaultRuleSet())
	require.NoError(t, engineError)

	testCases := []struct {
		name         string
		dependencies repair.Dependencies
		expectedErr  error
	}{
		{
			name:         "MissingFileSystem",
			dependencies: repair.Dependencies{Engine: engine},
			expectedErr:  repair.ErrFileSystemNotConfigured,
		},
		{
			name:         "MissingEngine",
			dependencies: repair.Dependencies{FileSystem: afero.NewMemMapFs()},
			expectedErr:  repair.ErrEngineNotConfigured,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			service, creationError := repair.NewService(testCase.dependencies)
			require.ErrorIs(t, creationError, testCase.expectedErr)
			require.Nil(t, service)
		})
	}
}

func TestRepairFailsWhenSourcesDirectoryMissing(t *testing.T) {
	service := newRepairService(t, afero.NewMemMapFs(), &bytes.Buffer{}, &bytes.Buffer{})

	_, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.ErrorIs(t, repairError, repair.ErrSourcesDirectoryMissing)
}

func TestRepairRewritesCorruptedFiles(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	corruptedPath := filepath.Join(testSourcesDirectoryConstant, "ProjectStore.swift")
	cleanPath := filepath.Join(testSourcesDirectoryConstant, "Clean.swift")
	ignoredPath := filepath.Join(testSourcesDirectoryConstant, "notes.txt")
	require.NoError(t, afero.WriteFile(fileSystem, corruptedPath, []byte(testCorruptedContentConstant), 0o644))
	require.NoError(t, afero.WriteFile(fileSystem, cleanPath, []byte(testRepairedContentConstant), 0o644))
	require.NoError(t, afero.WriteFile(fileSystem, ignoredPath, []byte(testCorruptedContentConstant), 0o644))

	outputBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, outputBuffer, &bytes.Buffer{})

	result, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.NoError(t, repairError)
	require.Equal(t, 2, result.FilesScanned)
	require.Equal(t, 1, result.FilesRepaired)
	require.Empty(t, result.ResidualFiles)
	require.Len(t, result.FileOutcomes, 2)
	require.Equal(t, repair.FileOutcome{Path: cleanPath}, result.FileOutcomes[0])
	require.Equal(t, repair.FileOutcome{Path: corruptedPath, Repaired: true, ChangedLines: 2}, result.FileOutcomes[1])

	repairedContent, readError := afero.ReadFile(fileSystem, corruptedPath)
	require.NoError(t, readError)
	require.Equal(t, testRepairedContentConstant, string(repairedContent))

	backupExists, backupError := afero.Exists(fileSystem, corruptedPath+".bak")
	require.NoError(t, backupError)
	require.False(t, backupExists)

	ignoredContent, ignoredReadError := afero.ReadFile(fileSystem, ignoredPath)
	require.NoError(t, ignoredReadError)
	require.Equal(t, testCorruptedContentConstant, string(ignoredContent))

	require.Contains(t, outputBuffer.String(), "REPAIRED: "+corruptedPath+" (2 lines changed)")
	require.Contains(t, outputBuffer.String(), "repaired 1 of 2 files")
	require.Contains(t, outputBuffer.String(), "all malformed patterns fixed")
}

func TestRepairCheckOnlyLeavesFilesUntouched(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	corruptedPath := filepath.Join(testSourcesDirectoryConstant, "ProjectStore.swift")
	require.NoError(t, afero.WriteFile(fileSystem, corruptedPath, []byte(testCorruptedContentConstant), 0o644))

	outputBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, outputBuffer, &bytes.Buffer{})

	result, repairError := service.Repair(context.Background(), repair.Options{
		SourcesDirectory: testSourcesDirectoryConstant,
		CheckOnly:        true,
	})
	require.NoError(t, repairError)
	require.Equal(t, 1, result.FilesRepaired)

	untouchedContent, readError := afero.ReadFile(fileSystem, corruptedPath)
	require.NoError(t, readError)
	require.Equal(t, testCorruptedContentConstant, string(untouchedContent))

	require.Contains(t, outputBuffer.String(), "WOULD REPAIR: "+corruptedPath)
}

func TestRepairSkipsFailingFilesAndContinues(t *testing.T) {
	backingFileSystem := afero.NewMemMapFs()
	failingPath := filepath.Join(testSourcesDirectoryConstant, "Broken.swift")
	corruptedPath := filepath.Join(testSourcesDirectoryConstant, "ProjectStore.swift")
	require.NoError(t, afero.WriteFile(backingFileSystem, failingPath, []byte(testCorruptedContentConstant), 0o644))
	require.NoError(t, afero.WriteFile(backingFileSystem, corruptedPath, []byte(testCorruptedContentConstant), 0o644))

	fileSystem := &failingOpenFileSystem{Fs: backingFileSystem, failingPath: failingPath}

	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, outputBuffer, errorBuffer)

	result, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.NoError(t, repairError)
	require.Equal(t, 2, result.FilesScanned)
	require.Equal(t, 1, result.FilesRepaired)
	require.Len(t, result.FileOutcomes, 2)
	require.Error(t, result.FileOutcomes[0].Err)
	require.Equal(t, failingPath, result.FileOutcomes[0].Path)

	require.Contains(t, errorBuffer.String(), "SKIPPED: "+failingPath)

	repairedContent, readError := afero.ReadFile(backingFileSystem, corruptedPath)
	require.NoError(t, readError)
	require.Equal(t, testRepairedContentConstant, string(repairedContent))
}

func TestRepairKeepsBackupWhenRepairedWriteFails(t *testing.T) {
	backingFileSystem := afero.NewMemMapFs()
	failingPath := filepath.Join(testSourcesDirectoryConstant, "Broken.swift")
	corruptedPath := filepath.Join(testSourcesDirectoryConstant, "ProjectStore.swift")
	require.NoError(t, afero.WriteFile(backingFileSystem, failingPath, []byte(testCorruptedContentConstant), 0o644))
	require.NoError(t, afero.WriteFile(backingFileSystem, corruptedPath, []byte(testCorruptedContentConstant), 0o644))

	fileSystem := &failingWriteFileSystem{Fs: backingFileSystem, failingPath: failingPath}

	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, outputBuffer, errorBuffer)

	result, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.NoError(t, repairError)
	require.Equal(t, 2, result.FilesScanned)
	require.Equal(t, 1, result.FilesRepaired)
	require.Equal(t, []string{failingPath}, result.ResidualFiles)

	require.Contains(t, errorBuffer.String(), "SKIPPED: "+failingPath)

	untouchedContent, untouchedReadError := afero.ReadFile(backingFileSystem, failingPath)
	require.NoError(t, untouchedReadError)
	require.Equal(t, testCorruptedContentConstant, string(untouchedContent))

	backupContent, backupReadError := afero.ReadFile(backingFileSystem, failingPath+".bak")
	require.NoError(t, backupReadError)
	require.Equal(t, testCorruptedContentConstant, string(backupContent))

	repairedContent, repairedReadError := afero.ReadFile(backingFileSystem, corruptedPath)
	require.NoError(t, repairedReadError)
	require.Equal(t, testRepairedContentConstant, string(repairedContent))

	otherBackupExists, otherBackupError := afero.Exists(backingFileSystem, corruptedPath+".bak")
	require.NoError(t, otherBackupError)
	require.False(t, otherBackupExists)
}

func TestRepairLeavesNoBackupWhenBackupWriteFails(t *testing.T) {
	backingFileSystem := afero.NewMemMapFs()
	failingPath := filepath.Join(testSourcesDirectoryConstant, "Broken.swift")
	require.NoError(t, afero.WriteFile(backingFileSystem, failingPath, []byte(testCorruptedContentConstant), 0o644))

	fileSystem := &failingWriteFileSystem{Fs: backingFileSystem, failingPath: failingPath + ".bak"}

	errorBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, &bytes.Buffer{}, errorBuffer)

	result, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.NoError(t, repairError)
	require.Equal(t, 0, result.FilesRepaired)

	require.Contains(t, errorBuffer.String(), "SKIPPED: "+failingPath)

	untouchedContent, untouchedReadError := afero.ReadFile(backingFileSystem, failingPath)
	require.NoError(t, untouchedReadError)
	require.Equal(t, testCorruptedContentConstant, string(untouchedContent))

	backupExists, backupExistsError := afero.Exists(backingFileSystem, failingPath+".bak")
	require.NoError(t, backupExistsError)
	require.False(t, backupExists)
}

func TestRepairReportsResidualCorruption(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	unrepairablePath := filepath.Join(testSourcesDirectoryConstant, "Custom.swift")
	require.NoError(t, afero.WriteFile(fileSystem, unrepairablePath, []byte(testUnrepairableContentConstant), 0o644))

	outputBuffer := &bytes.Buffer{}
	service := newRepairService(t, fileSystem, outputBuffer, &bytes.Buffer{})

	result, repairError := service.Repair(context.Background(), repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.NoError(t, repairError)
	require.Equal(t, 0, result.FilesRepaired)
	require.Equal(t, []string{unrepairablePath}, result.ResidualFiles)

	require.Contains(t, outputBuffer.String(), "WARNING: 1 files still contain malformed patterns")
	require.Contains(t, outputBuffer.String(), unrepairablePath)
}

func TestRepairHonorsContextCancellation(t *testing.T) {
	fileSystem := afero.NewMemMapFs()
	corruptedPath := filepath.Join(testSourcesDirectoryConstant, "ProjectStore.swift")
	require.NoError(t, afero.WriteFile(fileSystem, corruptedPath, []byte(testCorruptedContentConstant), 0o644))

	service := newRepairService(t, fileSystem, &bytes.Buffer{}, &bytes.Buffer{})

	cancelledContext, cancelFunction := context.WithCancel(context.Background())
	cancelFunction()

	_, repairError := service.Repair(cancelledContext, repair.Options{SourcesDirectory: testSourcesDirectoryConstant})
	require.ErrorIs(t, repairError, context.Canceled)
}
