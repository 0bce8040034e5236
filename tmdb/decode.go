package tmdb

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

var errNullBody = errors.New("body is null")

type payload map[string]json.RawMessage

type statusEnvelope struct {
	StatusCode    *int   `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

func decodeResponse(endpoint string, resp *http.Response) (payload, error) {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &HTTPStatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes)); err == nil {
			var env statusEnvelope
			if json.Unmarshal(data, &env) == nil && env.StatusCode != nil {
				statusErr.Code = *env.StatusCode
				statusErr.Message = env.StatusMessage
			}
		}
		return nil, statusErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyBody
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &JSONParseError{Endpoint: endpoint, Err: err}
	}
	if p == nil {
		// a literal null decodes without error
		return nil, &JSONParseError{Endpoint: endpoint, Err: errNullBody}
	}

	if raw, ok := p[keyStatusCode]; ok {
		var code int
		if json.Unmarshal(raw, &code) == nil {
			msg, _ := p.optionalString(keyStatusMessage)
			return nil, &RemoteAPIError{Endpoint: endpoint, Code: code, Message: msg}
		}
	}

	return p, nil
}

func (p payload) requiredString(endpoint, field string) (string, error) {
	v, ok := p.optionalString(field)
	if !ok || v == "" {
		return "", &MissingFieldError{Endpoint: endpoint, Field: field}
	}
	return v, nil
}

func (p payload) optionalString(field string) (string, bool) {
	raw, ok := p[field]
	if !ok || !isJSONString(raw) {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

func (p payload) requiredBool(endpoint, field string) (bool, error) {
	raw, ok := p[field]
	if !ok {
		return false, &MissingFieldError{Endpoint: endpoint, Field: field}
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil || isJSONNull(raw) {
		return false, &MissingFieldError{Endpoint: endpoint, Field: field}
	}
	return v, nil
}

func (p payload) requiredInt64(endpoint, field string) (int64, error) {
	raw, ok := p[field]
	if !ok || isJSONString(raw) || isJSONNull(raw) {
		return 0, &MissingFieldError{Endpoint: endpoint, Field: field}
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, &MissingFieldError{Endpoint: endpoint, Field: field}
	}
	return v, nil
}

func isJSONString(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '"'
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
