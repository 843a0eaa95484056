package ai

import "fmt"

// InvalidProviderError is returned for provider values outside the supported set.
type InvalidProviderError struct {
	Value string
}

func (e *InvalidProviderError) Error() string {
	return fmt.Sprintf("unsupported ai provider: %q", e.Value)
}

// HTTPError reports a non-success status from a provider endpoint.
type HTTPError struct {
	Provider Provider
	Status   int
	Message  string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s api returned status %d", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s api returned status %d: %s", e.Provider, e.Status, e.Message)
}

// ParseError reports a provider response that does not match the expected schema.
type ParseError struct {
	Provider Provider
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s response: %s", e.Provider, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigError reports a provider client that cannot be built from the given settings.
type ConfigError struct {
	Provider Provider
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configure %s client: %v", e.Provider, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError reports a network level failure talking to a provider.
type TransportError struct {
	Provider Provider
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
