package publish

import "fmt"

// UploadError reports a transport failure, timeout or non-2xx response.
// Message is already resolved for display.
type UploadError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upload failed: %s", e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// ResponseShapeError reports a successful status whose body is not a
// non-empty array led by an element with a src field.
type ResponseShapeError struct {
	Reason string
	Body   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("unexpected upload response: %s", e.Reason)
}
