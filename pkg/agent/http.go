package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/aviate-labs/agent-go/principal"
)

const contentTypeCBOR = "application/cbor"

func (a *Agent) post(ctx context.Context, canister principal.Principal, endpoint string, body []byte) (int, []byte, error) {
	requestURL := fmt.Sprintf("%s/api/v2/canister/%s/%s", a.baseURL, canister.String(), endpoint)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", contentTypeCBOR)
	return a.do(request, endpoint)
}

func (a *Agent) get(ctx context.Context, endpoint string) (int, []byte, error) {
	requestURL := fmt.Sprintf("%s/api/v2/%s", a.baseURL, endpoint)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	return a.do(request, endpoint)
}

func (a *Agent) do(request *http.Request, endpoint string) (int, []byte, error) {
	request.Header.Set("Accept-Encoding", "br")

	response, err := a.httpClient.Do(request)
	if err != nil {
		return 0, nil, fmt.Errorf("replica %s request failed: %w", endpoint, err)
	}
	defer response.Body.Close()

	responseBody, err := readBody(response)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read replica %s response: %w", endpoint, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return response.StatusCode, nil, fmt.Errorf(
			"replica %s request failed with status %d: %s",
			endpoint,
			response.StatusCode,
			strings.TrimSpace(string(responseBody)),
		)
	}
	return response.StatusCode, responseBody, nil
}

func readBody(response *http.Response) ([]byte, error) {
	var reader io.Reader = response.Body
	if strings.EqualFold(strings.TrimSpace(response.Header.Get("Content-Encoding")), "br") {
		reader = brotli.NewReader(response.Body)
	}
	return io.ReadAll(reader)
}
