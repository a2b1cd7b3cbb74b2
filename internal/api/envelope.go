package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/memopack/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the envelope used by
// the plain chi handlers, so clients parse one shape.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		return response.Envelope{
			Version: response.EnvelopeVersion,
			Success: false,
			Error:   apiErr.Message,
			Code:    apiErr.Code,
			Data:    apiErr.Details,
		}, nil
	}

	code, err := strconv.Atoi(status)
	if err != nil {
		code = 200
	}

	return response.Envelope{
		Version: response.EnvelopeVersion,
		Success: code < 400,
		Data:    v,
	}, nil
}
