package wsn

import (
	"fmt"
)

// ConfigurationError reports a missing or invalid setting, such as an absent credential.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration: %s: %s", e.Setting, e.Err.Error())
	}
	return fmt.Sprintf("configuration: %s is not set", e.Setting)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// TransportError is returned when the request never produced an HTTP response.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("query: request to %s failed: %s", e.URL, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteRequestError is returned for any non 2xx response.
type RemoteRequestError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("query: %s responded with status %d: %s", e.URL, e.StatusCode, truncate(string(e.Body), 256))
}

// MalformedResponseError is returned when the body does not have the expected shape.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %s", e.Reason, e.Err.Error())
	}
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ExportError wraps filesystem and encoding failures while writing a table.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export: could not write %s: %s", e.Path, e.Err.Error())
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
