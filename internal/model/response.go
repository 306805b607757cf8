package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// QueryResponse is returned by the query endpoint. Type is one of
// "success", "error", "schema" or "stats".
type QueryResponse struct {
	Type      string      `json:"type"`
	SQL       string      `json:"sql,omitempty"`
	RowCount  int         `json:"rowCount"`
	TotalRows int         `json:"totalRows"`
	Attempts  int         `json:"attempts,omitempty"`
	Columns   []string    `json:"columns,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// ListResponse wraps list results in a "resource" array.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains pagination information for list responses.
type ResponseMeta struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
