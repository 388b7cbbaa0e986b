package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	healthEndpointPathConstant              = "/health"
	apiEndpointPathConstant                 = "/api/v1/"
	baseURLRequiredMessageConstant          = "base URL must be provided"
	httpClientMissingMessageConstant        = "HTTP client not configured"
	backendUnreachableMessageConstant       = "cannot connect to backend"
	backendUnhealthyMessageConstant         = "backend health check failed"
	apiUnavailableMessageConstant           = "backend API check failed"
	requestCreationErrorTemplateConstant    = "failed to build request for %s: %w"
	requestFailureTemplateConstant          = "request to %s failed: %w"
	probeStartTemplateConstant              = "probing backend at %s\n"
	endpointStatusTemplateConstant          = "%s: %d\n"
	healthSuccessMessageConstant            = "backend is healthy\n"
	apiSuccessMessageConstant               = "api is accessible\n"
	endpointBodyTemplateConstant            = "response: %s\n"
	endpointFailureTemplateConstant         = "backend returned status %d for %s\n"
	unreachableHintTemplateConstant         = "cannot connect to backend at %s - is it running?\nstart the backend and run the probe again\n"
	responseBodyReadFailureTemplateConstant = "failed to read response body for %s: %v\n"
	responseBodyLimitConstant               = 1 << 16
	logMessageProbeCompletedConstant        = "backend probe completed"
	logFieldBaseURLConstant                 = "base_url"
	logFieldHealthStatusConstant            = "health_status"
	logFieldAPIStatusConstant               = "api_status"
)

// ErrBaseURLRequired indicates the base URL option was empty.
var ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)

// ErrHTTPClientNotConfigured indicates the HTTP client dependency was missing.
var ErrHTTPClientNotConfigured = errors.New(httpClientMissingMessageConstant)

// ErrBackendUnreachable indicates the backend refused the connection.
var ErrBackendUnreachable = errors.New(backendUnreachableMessageConstant)

// ErrBackendUnhealthy indicates the health endpoint returned a non-success status.
var ErrBackendUnhealthy = errors.New(backendUnhealthyMessageConstant)

// ErrAPIUnavailable indicates the API root returned a non-success status.
var ErrAPIUnavailable = errors.New(apiUnavailableMessageConstant)

// HTTPDoer issues HTTP requests; it is satisfied by *http.Client.
type HTTPDoer interface {
	Do(request *http.Request) (*http.Response, error)
}

// Dependencies enumerates external collaborators required for probe operations.
type Dependencies struct {
	HTTPClient   HTTPDoer
	Logger       *zap.Logger
	OutputWriter io.Writer
	ErrorWriter  io.Writer
}

// Options configures a backend probe.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// EndpointReport captures the classification of a single probe request.
type EndpointReport struct {
	Path       string
	StatusCode int
	Body       string
	Healthy    bool
}

// Result captures the observable outcomes of a probe run.
type Result struct {
	Health  EndpointReport
	API     EndpointReport
	Healthy bool
}

// Service issues sequential liveness requests against a backend.
type Service struct {
	httpClient   HTTPDoer
	logger       *zap.Logger
	outputWriter io.Writer
	errorWriter  io.Writer
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.HTTPClient == nil {
		return nil, ErrHTTPClientNotConfigured
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
		httpClient:   dependencies.HTTPClient,
		logger:       logger,
		outputWriter: outputWriter,
		errorWriter:  errorWriter,
	}, nil
}

// Probe checks the health endpoint and, when it succeeds, the API root.
// Each endpoint gets exactly one attempt; the probe succeeds only when both
// endpoints answer with a success status.
func (service *Service) Probe(executionContext context.Context, options Options) (Result, error) {
	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(options.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return Result{}, ErrBaseURLRequired
	}

	fmt.Fprintf(service.outputWriter, probeStartTemplateConstant, trimmedBaseURL)

	result := Result{}

	healthReport, healthError := service.requestEndpoint(executionContext, trimmedBaseURL, healthEndpointPathConstant, options.Timeout)
	if healthError != nil {
		return result, healthError
	}
	result.Health = healthReport

	if !healthReport.Healthy {
		fmt.Fprintf(service.outputWriter, endpointFailureTemplateConstant, healthReport.StatusCode, healthEndpointPathConstant)
		return result, ErrBackendUnhealthy
	}

	fmt.Fprint(service.outputWriter, healthSuccessMessageConstant)
	fmt.Fprintf(service.outputWriter, endpointBodyTemplateConstant, healthReport.Body)

	apiReport, apiError := service.requestEndpoint(executionContext, trimmedBaseURL, apiEndpointPathConstant, options.Timeout)
	if apiError != nil {
		return result, apiError
	}
	result.API = apiReport

	if apiReport.Healthy {
		fmt.Fprint(service.outputWriter, apiSuccessMessageConstant)
		fmt.Fprintf(service.outputWriter, endpointBodyTemplateConstant, apiReport.Body)
	} else {
		fmt.Fprintf(service.outputWriter, endpointFailureTemplateConstant, apiReport.StatusCode, apiEndpointPathConstant)
	}

	result.Healthy = result.Health.Healthy && result.API.Healthy

	service.logger.Info(
		logMessageProbeCompletedConstant,
		zap.String(logFieldBaseURLConstant, trimmedBaseURL),
		zap.Int(logFieldHealthStatusConstant, result.Health.StatusCode),
		zap.Int(logFieldAPIStatusConstant, result.API.StatusCode),
	)

	if !result.API.Healthy {
		return result, ErrAPIUnavailable
	}

	return result, nil
}

func (service *Service) requestEndpoint(executionContext context.Context, baseURL string, endpointPath string, timeout time.Duration) (EndpointReport, error) {
	requestContext := executionContext
	if timeout > 0 {
		var cancelRequest context.CancelFunc
		requestContext, cancelRequest = context.WithTimeout(executionContext, timeout)
		defer cancelRequest()
	}

	endpointURL := baseURL + endpointPath
	request, requestError := http.NewRequestWithContext(requestContext, http.MethodGet, endpointURL, nil)
	if requestError != nil {
		return EndpointReport{}, fmt.Errorf(requestCreationErrorTemplateConstant, endpointURL, requestError)
	}

	response, responseError := service.httpClient.Do(request)
	if responseError != nil {
		if errors.Is(responseError, syscall.ECONNREFUSED) {
			fmt.Fprintf(service.errorWriter, unreachableHintTemplateConstant, baseURL)
			return EndpointReport{}, fmt.Errorf(requestFailureTemplateConstant, endpointURL, errors.Join(ErrBackendUnreachable, responseError))
		}
		return EndpointReport{}, fmt.Errorf(requestFailureTemplateConstant, endpointURL, responseError)
	}
	defer response.Body.Close()

	report := EndpointReport{
		Path:       endpointPath,
		StatusCode: response.StatusCode,
		Healthy:    response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices,
	}

	fmt.Fprintf(service.outputWriter, endpointStatusTemplateConstant, endpointPath, response.StatusCode)

	responseBody, bodyReadError := io.ReadAll(io.LimitReader(response.Body, responseBodyLimitConstant))
	if bodyReadError != nil {
		fmt.Fprintf(service.errorWriter, responseBodyReadFailureTemplateConstant, endpointPath, bodyReadError)
		return report, nil
	}

	report.Body = strings.TrimSpace(string(responseBody))
	return report, nil
}
