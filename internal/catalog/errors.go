package catalog

import "errors"

var (
	// ErrUnknownPlatform is returned by Lookup for an unregistered platform name.
	ErrUnknownPlatform = errors.New("unknown catalog platform")

	// ErrHTTPStatus is returned when the catalog answers with a non-200 status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")

	// ErrMalformedPayload is returned when the response body is not valid JSON.
	ErrMalformedPayload = errors.New("malformed catalog payload")

	// ErrUnexpectedShape is returned when the payload is valid JSON but neither
	// an array of entries nor an object carrying a results array.
	ErrUnexpectedShape = errors.New("unexpected catalog payload shape")
)
