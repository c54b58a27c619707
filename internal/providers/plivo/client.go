package plivo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultBaseURL = "https://api.plivo.com"

type Client struct {
	AuthID    string
	AuthToken string
	HTTP      *http.Client
	BaseURL   string
}

type CallRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	AnswerURL string `json:"answer_url"`
	HangupURL string `json:"hangup_url,omitempty"`
}

type CallResponse struct {
	APIID       string `json:"api_id"`
	Message     string `json:"message"`
	RequestUUID string `json:"request_uuid,omitempty"`
	Error       string `json:"error,omitempty"`
}

// APIError is returned for any non-2xx reply from the Call API.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("plivo call api: status=%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("plivo call api: status=%d", e.Status)
}

type callBody struct {
	CallRequest
	AnswerMethod string `json:"answer_method"`
	HangupMethod string `json:"hangup_method,omitempty"`
}

// PlaceCall asks Plivo to dial req.To from req.From. The raw response body is
// returned alongside the parsed one so callers can pass it through untouched.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (CallResponse, int, []byte, error) {
	body := callBody{CallRequest: req, AnswerMethod: http.MethodPost}
	if req.HangupURL != "" {
		body.HangupMethod = http.MethodPost
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return CallResponse{}, 0, nil, err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	endpoint := baseURL + "/v1/Account/" + c.AuthID + "/Call/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return CallResponse{}, 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.AuthID, c.AuthToken)

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(httpReq)
	if err != nil {
		return CallResponse{}, 0, nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out CallResponse
	_ = json.Unmarshal(b, &out)

	// Plivo returns 201 for a fired call; treat 2xx as success
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return out, resp.StatusCode, b, &APIError{Status: resp.StatusCode, Message: msg, Body: b}
	}
	return out, resp.StatusCode, b, nil
}
