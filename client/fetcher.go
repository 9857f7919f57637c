package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/akinalp/dmrelay/models"
)

// Fetcher, Session'ın tam state'i çekmek ve okundu bildirmek için kullandığı HTTP tarafı.
type Fetcher interface {
	Sidebar(ctx context.Context) (*models.Sidebar, error)
	Conversation(ctx context.Context, peerID string) (*models.MessagePage, error)
	MarkSeen(ctx context.Context, peerID string) error
}

// HTTPFetcher, Fetcher'ın REST API implementasyonu.
type HTTPFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPFetcher, constructor. baseURL örn: "http://localhost:9090".
func NewHTTPFetcher(baseURL, token string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// apiResponse, sunucunun standart yanıt zarfı.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

// APIError, başarısız bir API yanıtı.
type APIError struct {
	Status  int
	Kind    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Kind, e.Message)
}

func (f *HTTPFetcher) Sidebar(ctx context.Context) (*models.Sidebar, error) {
	var out models.Sidebar
	if err := f.do(ctx, http.MethodGet, "/api/messages/users", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFetcher) Conversation(ctx context.Context, peerID string) (*models.MessagePage, error) {
	var out models.MessagePage
	if err := f.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(peerID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFetcher) MarkSeen(ctx context.Context, peerID string) error {
	return f.do(ctx, http.MethodPost, "/api/messages/seen/"+url.PathEscape(peerID), nil)
}

func (f *HTTPFetcher) do(ctx context.Context, method, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if !body.Success {
		return &APIError{Status: resp.StatusCode, Kind: body.Kind, Message: body.Error}
	}
	if dst == nil || len(body.Data) == 0 {
		return nil
	}
	return json.Unmarshal(body.Data, dst)
}
