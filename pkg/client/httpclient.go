package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	url2 "net/url"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StatusError is returned when a server answers with anything but 200.
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: StatusCode %d not 200", e.Method, e.URL, e.Code)
}

// Permanent reports whether retrying the same request is pointless.
func (e *StatusError) Permanent() bool {
	return e.Code >= 400 && e.Code < 500 && e.Code != http.StatusRequestTimeout && e.Code != http.StatusTooManyRequests
}

func do(ctx context.Context, c *http.Client, method string, url string, params map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		values := url2.Values{}
		for key, val := range params {
			values.Add(key, val)
		}
		request.URL.RawQuery = values.Encode()
	}
	if body != nil {
		request.Header.Add("Content-Type", "application/json")
	}
	response, err := c.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil, &StatusError{Method: method, URL: url, Code: response.StatusCode}
	}
	return io.ReadAll(response.Body)
}

func GetWithParams(ctx context.Context, c *http.Client, url string, params map[string]string) ([]byte, error) {
	return do(ctx, c, http.MethodGet, url, params, nil)
}

func Put(ctx context.Context, c *http.Client, url string, obj any) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	_, err = do(ctx, c, http.MethodPut, url, nil, payload)
	return err
}
