package xfyun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultURL of iFlytek long form ASR api
	DefaultURL = "https://raasr.xfyun.cn/v2/api"

	uploadPath = "/upload"
	resultPath = "/getResult"

	successCode = "000000"

	statusCreated = 0
	statusDone    = 4
	statusFailed  = -1
)

var errNotReady = errors.New("order not ready")

// Options for the Client
type Options struct {
	URL      string
	AppID    string
	Secret   string
	Language string
	// Duration is the declared audio duration sent with upload
	Duration     string
	PollInterval time.Duration
	// MaxPolls limits status checks, 0 - no limit
	MaxPolls int
	Timeout  time.Duration
}

// Client transcribes audio files using upload and poll protocol
type Client struct {
	httpclient    *http.Client
	url           string
	appID         string
	secret        string
	language      string
	duration      string
	pollInterval  time.Duration
	maxPolls      int
	timeout       time.Duration
	uploadTimeout time.Duration
	now           func() time.Time
}

// NewClient creates a transcription client
func NewClient(opt Options) (*Client, error) {
	if opt.AppID == "" {
		return nil, fmt.Errorf("no appID")
	}
	if opt.Secret == "" {
		return nil, fmt.Errorf("no secret")
	}
	res := Client{}
	res.url = strings.TrimSuffix(defaultS(opt.URL, DefaultURL), "/")
	res.appID = opt.AppID
	res.secret = opt.Secret
	res.language = defaultS(opt.Language, "en")
	res.duration = defaultS(opt.Duration, "200")
	res.pollInterval = opt.PollInterval
	if res.pollInterval <= 0 {
		res.pollInterval = time.Second * 5
	}
	if opt.MaxPolls < 0 {
		return nil, fmt.Errorf("wrong maxPolls %d", opt.MaxPolls)
	}
	res.maxPolls = opt.MaxPolls
	res.timeout = opt.Timeout
	if res.timeout <= 0 {
		res.timeout = time.Second * 30
	}
	res.uploadTimeout = time.Minute * 10
	res.httpclient = asrHTTPClient()
	res.now = time.Now
	goapp.Log.Info().Str("url", res.url).Str("language", res.language).Dur("poll", res.pollInterval).
		Int("maxPolls", res.maxPolls).Msg("cfg: xfyun")
	return &res, nil
}

// Transcribe uploads audio and waits for the text.
// All failures are returned as *api.TranscriptionError
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*api.Transcription, error) {
	res, err := c.transcribe(ctx, audioPath)
	if err != nil {
		return nil, api.NewTranscriptionError(err)
	}
	return res, nil
}

func (c *Client) transcribe(ctx context.Context, audioPath string) (*api.Transcription, error) {
	s := newSession(c.appID, c.secret, c.now())
	orderID, err := c.upload(ctx, s, audioPath)
	if err != nil {
		return nil, fmt.Errorf("can't upload: %w", err)
	}
	s.orderID = orderID
	goapp.Log.Info().Str("orderID", orderID).Msg("uploaded")

	r, err := c.waitResult(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("can't get result: %w", err)
	}
	text, err := parseOrderResult(r.Content.OrderResult)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("orderID", orderID).Int("len", len(text)).Msg("transcribed")
	return &api.Transcription{Text: text}, nil
}

type response struct {
	Code     string `json:"code"`
	DescInfo string `json:"descInfo"`
	Content  struct {
		OrderID   string `json:"orderId"`
		OrderInfo struct {
			Status   int `json:"status"`
			FailType int `json:"failType"`
		} `json:"orderInfo"`
		OrderResult string `json:"orderResult"`
	} `json:"content"`
}

func (c *Client) upload(ctx context.Context, s *uploadSession, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("can't open audio: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("can't stat audio: %w", err)
	}
	resp, err := c.post(ctx, uploadPath, s.uploadParams(audioPath, st.Size(), c.duration, c.language),
		f, st.Size(), c.uploadTimeout)
	if err != nil {
		return "", err
	}
	if resp.Content.OrderID == "" {
		return "", fmt.Errorf("no orderId in response")
	}
	return resp.Content.OrderID, nil
}

// waitResult polls until the order reaches a final status.
// First check is done immediately
func (c *Client) waitResult(ctx context.Context, s *uploadSession) (*response, error) {
	var res *response
	polls := 0
	op := func() error {
		polls++
		r, err := c.post(ctx, resultPath, s.resultParams(), nil, 0, c.timeout)
		if err != nil {
			return backoff.Permanent(err)
		}
		st := r.Content.OrderInfo.Status
		goapp.Log.Debug().Str("orderID", s.orderID).Int("status", st).Int("poll", polls).Msg("status")
		switch {
		case st == statusDone:
			res = r
			return nil
		case st == statusFailed:
			return backoff.Permanent(fmt.Errorf("order failed, failType %d", r.Content.OrderInfo.FailType))
		case st >= statusCreated && st < statusDone:
			return errNotReady
		}
		return backoff.Permanent(fmt.Errorf("unexpected order status %d", st))
	}
	if err := backoff.Retry(op, c.pollBackoff(ctx)); err != nil {
		if errors.Is(err, errNotReady) {
			return nil, fmt.Errorf("no result after %d polls", polls)
		}
		return nil, err
	}
	return res, nil
}

func (c *Client) pollBackoff(ctx context.Context) backoff.BackOff {
	var res backoff.BackOff = backoff.NewConstantBackOff(c.pollInterval)
	if c.maxPolls > 0 {
		res = backoff.WithMaxRetries(res, uint64(c.maxPolls-1))
	}
	return backoff.WithContext(res, ctx)
}

func (c *Client) post(ctx context.Context, path string, params url.Values, body io.Reader, size int64,
	timeout time.Duration) (*response, error) {
	ctx, cancelF := context.WithTimeout(ctx, timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+path+"?"+params.Encode(), body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", path, err)
	}
	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("can't decode response: %w", err)
	}
	if res.Code != successCode {
		return nil, fmt.Errorf("xfyun error %s: %s", res.Code, res.DescInfo)
	}
	return &res, nil
}

func asrHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func defaultS(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
