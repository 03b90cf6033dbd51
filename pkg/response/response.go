package response

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Error ErrorBody `json:"error"`
}

func Error(code, message string, details any) Envelope {
	return Envelope{Error: ErrorBody{Code: code, Message: message, Details: details}}
}
