package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	"github.com/ollama/bytepair/envconfig"
	"github.com/ollama/bytepair/tokenizer"
	"github.com/ollama/bytepair/version"
)

// Client encapsulates client state for interacting with the bytepair
// service. Use [ClientFromEnvironment] to create new Clients.
type Client struct {
	base *url.URL
	http *http.Client
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

	err := json.Unmarshal(body, &apiError)
	if err != nil {
		// Use the full body as the message if we fail to decode a response.
		apiError.ErrorMessage = string(body)
	}

	return apiError
}

// ClientFromEnvironment creates a new [Client] using configuration from the
// environment variable BYTEPAIR_HOST, which points to the network host and
// port on which the bytepair service is listening.
func ClientFromEnvironment() (*Client, error) {
	return &Client{
		base: envconfig.Host(),
		http: http.DefaultClient,
	}, nil
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{
		base: base,
		http: http,
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		data, err := json.Marshal(reqData)
		if err != nil {
			return err
		}

		reqBody = bytes.NewReader(data)
	}

	path, query, _ := strings.Cut(path, "?")
	requestURL := c.base.JoinPath(path)
	requestURL.RawQuery = query

	request, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", fmt.Sprintf("bytepair/%s (%s %s) Go/%s", version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()))

	respObj, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer respObj.Body.Close()

	respBody, err := io.ReadAll(respObj.Body)
	if err != nil {
		return err
	}

	if err := checkError(respObj, respBody); err != nil {
		return err
	}

	if len(respBody) > 0 && respData != nil {
		if err := json.Unmarshal(respBody, respData); err != nil {
			return err
		}
	}
	return nil
}

// Encode encodes text with the server's vocabulary.
func (c *Client) Encode(ctx context.Context, req *EncodeRequest) ([]tokenizer.Symbol, error) {
	var resp EncodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/encode", req, &resp); err != nil {
		return nil, err
	}
	return resp.Symbols, nil
}

// Decode turns symbols back into text.
func (c *Client) Decode(ctx context.Context, req *DecodeRequest) (string, error) {
	var resp DecodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/decode", req, &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

// AddSpecial registers a special token on the server.
func (c *Client) AddSpecial(ctx context.Context, req *SpecialRequest) (*SpecialResponse, error) {
	var resp SpecialResponse
	if err := c.do(ctx, http.MethodPost, "/api/special", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Train grows the server's vocabulary. The server persists the result
// before responding.
func (c *Client) Train(ctx context.Context, req *TrainRequest) (*TrainResponse, error) {
	var resp TrainResponse
	if err := c.do(ctx, http.MethodPost, "/api/train", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Vocabulary describes the server's tokenizer. Entries are included only
// when entries is true.
func (c *Client) Vocabulary(ctx context.Context, entries bool) (*VocabularyResponse, error) {
	path := "/api/vocabulary"
	if entries {
		path += "?entries=true"
	}

	var resp VocabularyResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Version returns the bytepair server version as a string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version VersionResponse
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &version); err != nil {
		return "", err
	}

	return version.Version, nil
}
