// Package httpapi holds the API Gateway plumbing shared by the lambda
// handlers: permissive CORS headers, the OPTIONS preflight short-circuit
// and the JSON success / error envelopes.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// Headers builds the permissive CORS header set advertising the methods
// the handler answers to.
func Headers(methods string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": methods,
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
	}
}

// IsPreflight reports whether the request is a CORS preflight.
func IsPreflight(req events.APIGatewayProxyRequest) bool {
	return req.HTTPMethod == http.MethodOptions
}

// Preflight answers a CORS preflight with an empty 200.
func Preflight(headers map[string]string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: http.StatusOK, Headers: headers}
}

// JSON encodes body into a response with the given status.
func JSON(status int, headers map[string]string, body interface{}) events.APIGatewayProxyResponse {
	data, err := json.Marshal(body)
	if err != nil {
		// the envelopes are maps of encodable values, this only fires on
		// programmer error
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"internal server error"}`,
		}
	}

	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(data)}
}

// OK wraps body in a 200 response.
func OK(headers map[string]string, body interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusOK, headers, body)
}

// Fail wraps msg in the uniform error envelope.
func Fail(status int, headers map[string]string, msg string) events.APIGatewayProxyResponse {
	return JSON(status, headers, map[string]string{"error": msg})
}

// BadRequest malformed input, missing fields or an unsupported action.
func BadRequest(headers map[string]string, msg string) events.APIGatewayProxyResponse {
	return Fail(http.StatusBadRequest, headers, msg)
}

// Forbidden missing identity, closed view window or cross-tenant access.
func Forbidden(headers map[string]string, msg string) events.APIGatewayProxyResponse {
	return Fail(http.StatusForbidden, headers, msg)
}

// NotFound missing entity or unmatched route.
func NotFound(headers map[string]string, msg string) events.APIGatewayProxyResponse {
	return Fail(http.StatusNotFound, headers, msg)
}

// Conflict duplicate create.
func Conflict(headers map[string]string, msg string) events.APIGatewayProxyResponse {
	return Fail(http.StatusConflict, headers, msg)
}

// Internal store or other unexpected failure, the message stays generic.
func Internal(headers map[string]string) events.APIGatewayProxyResponse {
	return Fail(http.StatusInternalServerError, headers, "internal server error")
}

// DecodeBody unmarshals the request body into out, an empty body decodes
// into the zero value.
func DecodeBody(req events.APIGatewayProxyRequest, out interface{}) error {
	if req.Body == "" {
		return nil
	}
	return json.Unmarshal([]byte(req.Body), out)
}

// BearerToken extracts the bearer credential from the Authorization
// header, empty when absent.
func BearerToken(req events.APIGatewayProxyRequest) string {
	header := req.Headers["Authorization"]
	if header == "" {
		header = req.Headers["authorization"]
	}

	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}

	return header
}
