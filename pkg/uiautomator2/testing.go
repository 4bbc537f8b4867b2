package uiautomator2

import "net/http"

// NewTestClient creates a Client bound to baseURL with an already open
// session. This should only be used in tests.
func NewTestClient(baseURL, sessionID string) *Client {
	return &Client{
		http:      &http.Client{},
		baseURL:   baseURL,
		sessionID: sessionID,
		logger:    createLogger(),
	}
}
