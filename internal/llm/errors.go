package llm

import "errors"

var (
	ErrUnauthorized         = errors.New("llm unauthorized")
	ErrRateLimited          = errors.New("llm rate limited")
	ErrUnavailable          = errors.New("llm unavailable")
	ErrStreamingUnsupported = errors.New("streaming not supported by provider")
)
