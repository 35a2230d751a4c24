package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	apperrors "github.com/utafrali/bookshop/pkg/errors"
)

// upstreamErrorBody covers the error shapes returned by the APIs we call:
// our own {"error":{...}} envelope, an API gateway {"fault":{...}} and a
// {"status":"ERROR","errors":[...]} list.
type upstreamErrorBody struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Fault *struct {
		FaultString string `json:"faultstring"`
	} `json:"fault"`
	Errors []string `json:"errors"`
}

func (b upstreamErrorBody) message() string {
	switch {
	case b.Error != nil && b.Error.Message != "":
		return b.Error.Message
	case b.Fault != nil && b.Fault.FaultString != "":
		return b.Fault.FaultString
	case len(b.Errors) > 0:
		return strings.Join(b.Errors, "; ")
	default:
		return ""
	}
}

// ParseResponseError consumes and closes the body of a non-2xx response and
// translates it into an error. Only call it when the status is not 2xx.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var body upstreamErrorBody
	if json.Unmarshal(bodyBytes, &body) == nil {
		if msg := body.message(); msg != "" {
			return mapUpstreamError(resp.StatusCode, msg, serviceName)
		}
	}

	return mapUpstreamError(resp.StatusCode, strings.TrimSpace(string(bodyBytes)), serviceName)
}

func mapUpstreamError(status int, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusTooManyRequests, status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	default:
		return fmt.Errorf("%s returned status %d: %s", serviceName, status, message)
	}
}
