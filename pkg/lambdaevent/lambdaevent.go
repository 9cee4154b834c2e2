// Package lambdaevent adapts the shared response envelope to API Gateway
// proxy integration events and provides small request helpers so the Lambda
// entrypoints stay thin.
package lambdaevent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/araozmd/ancdotario-user-service/pkg/log"
	"github.com/araozmd/ancdotario-user-service/pkg/response"
)

var baseHeaders = map[string]string{
	"Content-Type": "application/json",
}

// JSON renders an envelope as an API Gateway proxy response.
func JSON(status int, body response.Response) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		// The envelope only carries JSON-serializable payloads; reaching
		// this means a programming error, not bad input.
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    baseHeaders,
			Body:       `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"}}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    baseHeaders,
		Body:       string(raw),
	}
}

// Ok renders a 200 success envelope.
func Ok(data interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusOK, response.Ok(data))
}

// Created renders a 201 success envelope.
func Created(data interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusCreated, response.Ok(data))
}

// MultiStatus renders a 207 envelope for partially successful batches.
func MultiStatus(data interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusMultiStatus, response.Ok(data))
}

// Error renders an error envelope.
func Error(status int, code, message string) events.APIGatewayProxyResponse {
	return JSON(status, response.Err(code, message))
}

// ErrorWithHint renders an error envelope carrying a usage hint.
func ErrorWithHint(status int, code, message, hint string) events.APIGatewayProxyResponse {
	return JSON(status, response.ErrWithHint(code, message, hint))
}

// ConflictWithData renders a 409 carrying both the conflict code and a data
// payload, mirroring response.ConflictWithData.
func ConflictWithData(code, message string, data interface{}) events.APIGatewayProxyResponse {
	return JSON(http.StatusConflict, response.Response{
		Success: false,
		Data:    data,
		Error:   &response.ErrorInfo{Code: code, Message: message},
	})
}

// ParseJSON decodes the event body into out, transparently handling the
// base64 encoding API Gateway applies to binary media types.
func ParseJSON(event events.APIGatewayProxyRequest, out interface{}) error {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return fmt.Errorf("invalid base64 body: %w", err)
		}
		body = decoded
	}
	if len(body) == 0 {
		return fmt.Errorf("request body is empty")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// PathParam returns a path parameter by name, empty when absent.
func PathParam(event events.APIGatewayProxyRequest, name string) string {
	if event.PathParameters == nil {
		return ""
	}
	return event.PathParameters[name]
}

// QueryParam returns a query string parameter by name, empty when absent.
func QueryParam(event events.APIGatewayProxyRequest, name string) string {
	if event.QueryStringParameters == nil {
		return ""
	}
	return event.QueryStringParameters[name]
}

// WithRequestLogger derives a request-scoped logger from the event metadata
// and stores it in the context, matching what the Gin middleware does for
// the dev server.
func WithRequestLogger(ctx context.Context, event events.APIGatewayProxyRequest) context.Context {
	l := log.ForRequest(
		log.L(),
		event.RequestContext.RequestID,
		event.HTTPMethod,
		event.Path,
		event.RequestContext.Identity.SourceIP,
	)
	return log.WithLogger(ctx, l)
}
