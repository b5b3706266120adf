package lsp

const RPC_VERSION = "2.0"

type Request struct {
	RPC    string `json:"jsonrpc"`
	ID     int    `json:"id"`
	Method string `json:"method"`
}

type Response struct {
	RPC string `json:"jsonrpc"`
	ID  *int   `json:"id"`
	// Result
	// Error
}

type Notification struct {
	RPC    string `json:"jsonrpc"`
	Method string `json:"method"`
}

type ShutdownRequest struct {
	Request
}

type ShutdownResponse struct {
	Response
	Result *struct{} `json:"result"`
}

type ErrorResponse struct {
	Response
	Error ResponseError `json:"error"`
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidParams  = -32602
	ErrorCodeMethodNotFound = -32601
)

// NewErrorResponse answers the request with the given id. A nil id is sent
// as null, for messages whose id could not be read.
func NewErrorResponse(id *int, code int, message string) ErrorResponse {
	return ErrorResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  id,
		},
		Error: ResponseError{
			Code:    code,
			Message: message,
		},
	}
}
