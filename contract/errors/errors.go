package errors

// Error codes for the bus contracts. Keep stable; used across adapters and buses.
const (
	ErrCodeNilCommand          = "taskbus.nil_command"
	ErrCodeNilQuery            = "taskbus.nil_query"
	ErrCodeNilHandler          = "taskbus.nil_handler"
	ErrCodeHandlerNotFound     = "taskbus.handler_not_found"
	ErrCodeHandlerTypeMismatch = "taskbus.handler_type_mismatch"
	ErrCodeAsyncNotConfigured  = "taskbus.async_not_configured"
	ErrCodeEnqueueFailed       = "taskbus.enqueue_failed"
	ErrCodePublishFailed       = "taskbus.publish_failed"
	ErrCodeSerializationFailed = "taskbus.serialization_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrNilCommand          = Code(ErrCodeNilCommand)
	ErrNilQuery            = Code(ErrCodeNilQuery)
	ErrNilHandler          = Code(ErrCodeNilHandler)
	ErrHandlerNotFound     = Code(ErrCodeHandlerNotFound)
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrAsyncNotConfigured  = Code(ErrCodeAsyncNotConfigured)
	ErrEnqueueFailed       = Code(ErrCodeEnqueueFailed)
	ErrPublishFailed       = Code(ErrCodePublishFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)
