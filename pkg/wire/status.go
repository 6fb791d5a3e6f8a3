package wire

import "fmt"

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusPathNotFound indicates no node exists at the requested path.
	StatusPathNotFound Status = 1

	// StatusNotParameter indicates the node has no value slot.
	StatusNotParameter Status = 2

	// StatusReadOnly indicates an attempt to write a read-only parameter.
	StatusReadOnly Status = 3

	// StatusInvalidValue indicates the value does not fit the parameter.
	StatusInvalidValue Status = 4

	// StatusNotAuthorized indicates the consumer may not access the node.
	StatusNotAuthorized Status = 5

	// StatusDeviceError indicates the provider failed to apply the request.
	StatusDeviceError Status = 6

	// StatusUnsupported indicates the operation is not supported.
	StatusUnsupported Status = 7

	// StatusInvalidRequest indicates a malformed request.
	StatusInvalidRequest Status = 8
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusPathNotFound:
		return "PATH_NOT_FOUND"
	case StatusNotParameter:
		return "NOT_PARAMETER"
	case StatusReadOnly:
		return "READ_ONLY"
	case StatusInvalidValue:
		return "INVALID_VALUE"
	case StatusNotAuthorized:
		return "NOT_AUTHORIZED"
	case StatusDeviceError:
		return "DEVICE_ERROR"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusInvalidRequest:
		return "INVALID_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// IsError returns true if the status indicates an error.
func (s Status) IsError() bool {
	return s != StatusSuccess
}

// StatusError is the error form of a non-success response.
type StatusError struct {
	Status  Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}
