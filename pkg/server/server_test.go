package server_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/Denizmerty/PiTime/pkg/cache"
	"github.com/Denizmerty/PiTime/pkg/server"
	"github.com/Denizmerty/PiTime/pkg/transfer"
	"github.com/alicebob/miniredis"
)

// First 100 fractional digits of pi.
const piDigits = "1415926535897932384626433832795028841971693993751058209749445923078164062862089986280348253421170679"

func fetchDigits(t *testing.T, baseURL string, count int) (*http.Response, *transfer.DigitsResponse) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/v1/digits/%d", baseURL, count))
	if err != nil {
		t.Fatalf("Error calling digits endpoint: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	var digitsResponse transfer.DigitsResponse
	if err := digitsResponse.UnmarshalResponse(context.Background(), resp); err != nil {
		t.Fatalf("Error unmarshalling response: %v", err)
	}
	return resp, &digitsResponse
}

func TestGetDigits_WithNoopCache(t *testing.T) {
	piServer, err := server.NewPiServer(server.WithLabels(map[string]string{"env": "test"}))
	if err != nil {
		t.Fatalf("Error building PiServer: %v", err)
	}
	ts := httptest.NewServer(piServer.Handler())
	defer ts.Close()
	for _, count := range []int{0, 1, 5, 10, 100} {
		resp, digitsResponse := fetchDigits(t, ts.URL, count)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Count %d: expected status 200 got %d", count, resp.StatusCode)
			continue
		}
		if digitsResponse.Count != count {
			t.Errorf("Count %d: response count is %d", count, digitsResponse.Count)
		}
		if digitsResponse.Digits != piDigits[:count] {
			t.Errorf("Count %d: expected %s got %s", count, piDigits[:count], digitsResponse.Digits)
		}
		if digitsResponse.Identity == "" {
			t.Errorf("Count %d: response has no identity", count)
		}
		if digitsResponse.Labels["env"] != "test" {
			t.Errorf("Count %d: labels are missing: %v", count, digitsResponse.Labels)
		}
	}
}

func TestGetDigits_WithRedisCache(t *testing.T) {
	ctx := context.Background()
	mock, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Error running miniredis: %v", err)
	}
	defer mock.Close()
	redisCache := cache.NewRedisCache(ctx, mock.Addr())
	piServer, err := server.NewPiServer(server.WithCache(redisCache))
	if err != nil {
		t.Fatalf("Error building PiServer: %v", err)
	}
	ts := httptest.NewServer(piServer.Handler())
	defer ts.Close()
	// First request populates the cache, second is served from it.
	for i := 0; i < 2; i++ {
		resp, digitsResponse := fetchDigits(t, ts.URL, 10)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Pass %d: expected status 200 got %d", i, resp.StatusCode)
		}
		if digitsResponse.Digits != piDigits[:10] {
			t.Errorf("Pass %d: expected %s got %s", i, piDigits[:10], digitsResponse.Digits)
		}
	}
	// A count of 10 is cached as a full 100 digit block.
	key := strconv.FormatInt(100, 16)
	cached, err := redisCache.GetValue(ctx, key)
	if err != nil {
		t.Errorf("GetValue returned an error: %v", err)
	}
	if cached != piDigits {
		t.Errorf("Cached block mismatch: expected %s got %s", piDigits, cached)
	}
}

func TestGetDigits_BadCount(t *testing.T) {
	piServer, err := server.NewPiServer()
	if err != nil {
		t.Fatalf("Error building PiServer: %v", err)
	}
	ts := httptest.NewServer(piServer.Handler())
	defer ts.Close()
	for _, param := range []string{"abc", "-1", "3.14", ""} {
		resp, err := http.Get(ts.URL + "/v1/digits/" + param)
		if err != nil {
			t.Fatalf("Error calling digits endpoint: %v", err)
		}
		resp.Body.Close()
		if param == "" {
			// No count segment does not match the route at all.
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("Param %q: expected status 404 got %d", param, resp.StatusCode)
			}
			continue
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Param %q: expected status 400 got %d", param, resp.StatusCode)
		}
	}
}

func TestGetDigits_AboveMaxDigits(t *testing.T) {
	piServer, err := server.NewPiServer(server.WithMaxDigits(50))
	if err != nil {
		t.Fatalf("Error building PiServer: %v", err)
	}
	ts := httptest.NewServer(piServer.Handler())
	defer ts.Close()
	resp, _ := fetchDigits(t, ts.URL, 51)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400 got %d", resp.StatusCode)
	}
	resp, digitsResponse := fetchDigits(t, ts.URL, 50)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200 got %d", resp.StatusCode)
	}
	if digitsResponse.Digits != piDigits[:50] {
		t.Errorf("Expected %s got %s", piDigits[:50], digitsResponse.Digits)
	}
}

func TestHealthz(t *testing.T) {
	piServer, err := server.NewPiServer()
	if err != nil {
		t.Fatalf("Error building PiServer: %v", err)
	}
	ts := httptest.NewServer(piServer.Handler())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("Error calling healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 got %d", resp.StatusCode)
	}
}
