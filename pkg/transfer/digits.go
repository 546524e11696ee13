// Package transfer holds the JSON shapes exchanged between the PiTime service
// and its clients.
package transfer

import (
	"encoding/json"
	"io"
	"net/http"

	"golang.org/x/net/context"
)

const (
	ContentType     = "Content-Type"
	JSONContentType = "application/json"
)

// DigitsResponse carries the result of a digit request: the requested count
// and the fractional digits of pi as a string, e.g. {count: 5, digits:
// "14159"}, with metadata identifying the instance that served the request.
type DigitsResponse struct {
	Count    int               `json:"count"`
	Digits   string            `json:"digits"`
	Identity string            `json:"identity,omitempty"`
	Labels   map[string]string `json:"labels,omitempty"`
}

func (d DigitsResponse) MarshalResponse(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set(ContentType, JSONContentType)
	return json.NewEncoder(w).Encode(d)
}

func (d *DigitsResponse) UnmarshalResponse(ctx context.Context, r *http.Response) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, d)
}

func MarshalError(ctx context.Context, w http.ResponseWriter, status int) {
	w.Header().Set(ContentType, JSONContentType)
	w.WriteHeader(status)
}
