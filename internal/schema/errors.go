package schema

type (
	// ErrorDetail is the inner error object of a canonical error body.
	ErrorDetail struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Param   string `json:"param,omitempty"`
		Code    string `json:"code,omitempty"`
	}

	// ErrorBody is the canonical error envelope returned for provider and
	// gateway failures, tagged with the provider that produced it.
	ErrorBody struct {
		Error    ErrorDetail `json:"error"`
		Provider string      `json:"provider,omitempty"`
	}
)
