package probe_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/srcfix/internal/probe"
	"github.com/temirov/srcfix/internal/utils"
)

func executeProbeCommand(t *testing.T, builder probe.CommandBuilder, arguments []string) (*bytes.Buffer, *bytes.Buffer, error) {
	t.Helper()

	command, buildError := builder.Build()
	require.NoError(t, buildError)

	outputBuffer := &bytes.Buffer{}
	errorBuffer := &bytes.Buffer{}
	command.SetOut(outputBuffer)
	command.SetErr(errorBuffer)
	command.SetContext(context.Background())
	command.SetArgs(arguments)

	executionError := command.Execute()
	return outputBuffer, errorBuffer, executionError
}

func TestCommandProbesConfiguredBackend(t *testing.T) {
	state := &probeBackendState{healthStatus: http.StatusOK, apiStatus: http.StatusOK}
	server := newProbeBackend(t, state)

	builder := probe.CommandBuilder{
		ConfigurationProvider: func() probe.CommandConfiguration {
			return probe.CommandConfiguration{BaseURL: server.URL, TimeoutSeconds: 2}
		},
	}

	outputBuffer, _, executionError := executeProbeCommand(t, builder, nil)
	require.NoError(t, executionError)
	require.Contains(t, outputBuffer.String(), "backend is healthy")
	require.Contains(t, outputBuffer.String(), "api is accessible")
}

func TestCommandBaseURLFlagOverridesConfiguration(t *testing.T) {
	state := &probeBackendState{healthStatus: http.StatusOK, apiStatus: http.StatusOK}
	server := newProbeBackend(t, state)

	builder := probe.CommandBuilder{
		ConfigurationProvider: func() probe.CommandConfiguration {
			return probe.CommandConfiguration{BaseURL: unusedLocalAddress(t), TimeoutSeconds: 2}
		},
	}

	outputBuffer, _, executionError := executeProbeCommand(t, builder, []string{"--base-url", server.URL})
	require.NoError(t, executionError)
	require.Contains(t, outputBuffer.String(), "probing backend at "+server.URL)
	require.EqualValues(t, 1, state.healthRequests.Load())
}

func TestCommandLogsActiveConfigurationFile(t *testing.T) {
	state := &probeBackendState{healthStatus: http.StatusOK, apiStatus: http.StatusOK}
	server := newProbeBackend(t, state)

	observerCore, observedLogs := observer.New(zap.DebugLevel)
	builder := probe.CommandBuilder{
		LoggerProvider: func() *zap.Logger {
			return zap.New(observerCore)
		},
		ConfigurationProvider: func() probe.CommandConfiguration {
			return probe.CommandConfiguration{BaseURL: server.URL, TimeoutSeconds: 2}
		},
	}
	command, buildError := builder.Build()
	require.NoError(t, buildError)

	command.SetOut(&bytes.Buffer{})
	command.SetErr(&bytes.Buffer{})
	contextAccessor := utils.NewCommandContextAccessor()
	command.SetContext(contextAccessor.WithConfigurationFilePath(context.Background(), "config.yaml"))
	command.SetArgs(nil)
	require.NoError(t, command.Execute())

	matchedEntries := observedLogs.FilterMessage("configuration file applied").All()
	require.Len(t, matchedEntries, 1)
	require.Equal(t, "config.yaml", matchedEntries[0].ContextMap()["configuration_file"])
}

func TestCommandFailsWhenAPIUnavailable(t *testing.T) {
	state := &probeBackendState{healthStatus: http.StatusOK, apiStatus: http.StatusBadGateway}
	server := newProbeBackend(t, state)

	builder := probe.CommandBuilder{
		ConfigurationProvider: func() probe.CommandConfiguration {
			return probe.CommandConfiguration{BaseURL: server.URL, TimeoutSeconds: 2}
		},
	}

	outputBuffer, _, executionError := executeProbeCommand(t, builder, nil)
	require.ErrorIs(t, executionError, probe.ErrAPIUnavailable)
	require.Contains(t, outputBuffer.String(), "backend returned status 502 for /api/v1/")
}

func TestCommandFailsWhenBackendUnreachable(t *testing.T) {
	builder := probe.CommandBuilder{
		ConfigurationProvider: func() probe.CommandConfiguration {
			return probe.CommandConfiguration{BaseURL: unusedLocalAddress(t), TimeoutSeconds: 1}
		},
	}

	_, errorBuffer, executionError := executeProbeCommand(t, builder, nil)
	require.ErrorIs(t, executionError, probe.ErrBackendUnreachable)
	require.Contains(t, errorBuffer.String(), "is it running?")
}
