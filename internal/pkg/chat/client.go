package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultURL of Zhipu chat completions api
	DefaultURL = "https://open.bigmodel.cn/api/paas/v4/chat/completions"
	// DefaultModel used for the companion chat
	DefaultModel = "glm-4-air"
)

// Options for the Client
type Options struct {
	URL     string
	Key     string
	Model   string
	Timeout time.Duration
}

// Client calls chat completions api
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
	backoff    func() backoff.BackOff
}

// NewClient creates llm client
func NewClient(opt Options) (*Client, error) {
	if opt.Key == "" {
		return nil, fmt.Errorf("no key")
	}
	res := Client{url: opt.URL, key: opt.Key, model: opt.Model, timeout: opt.Timeout}
	if res.url == "" {
		res.url = DefaultURL
	}
	if res.model == "" {
		res.model = DefaultModel
	}
	if res.timeout <= 0 {
		res.timeout = time.Minute
	}
	res.httpclient = &http.Client{Transport: newTransport()}
	res.backoff = newSimpleBackoff
	goapp.Log.Info().Str("url", res.url).Str("model", res.model).Dur("timeout", res.timeout).Msg("cfg: chat llm")
	return &res, nil
}

type request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type response struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete returns the model answer to the conversation
func (c *Client) Complete(ctx context.Context, msgs []Message) (string, error) {
	defer goapp.Estimate("llm")()
	b, err := json.Marshal(request{Model: c.model, Messages: msgs})
	if err != nil {
		return "", err
	}
	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, c.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.key)
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer func() {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
			_ = resp.Body.Close()
		}()
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			return "", goapp.IsRetryableCode(resp.StatusCode), fmt.Errorf("can't invoke llm: %w", err)
		}
		var res response
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't decode response: %w", err)
		}
		if res.Error != nil {
			return "", false, fmt.Errorf("llm error %s: %s", res.Error.Code, res.Error.Message)
		}
		if len(res.Choices) == 0 || strings.TrimSpace(res.Choices[0].Message.Content) == "" {
			return "", false, fmt.Errorf("empty answer")
		}
		return res.Choices[0].Message.Content, false, nil
	}, c.backoff())
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxIdleConns = 20
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}

// three calls in total
func newSimpleBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
}
