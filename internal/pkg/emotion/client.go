package emotion

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/audio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// DefaultURL of DashScope multimodal generation api
	DefaultURL = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	// DefaultModel used for detection
	DefaultModel = "qwen-audio-turbo-latest"

	systemPrompt = "You are an emotion analysis assistant. Analyze the emotion in the audio and return only " +
		"emotion type (happy/sad/angry) and intensity (1-10)."
	userPrompt = "What emotion is expressed in this audio? Choose only one from (happy, sad, angry) and rate " +
		"intensity from 1-10. Output JSON format with keys 'emotion_type' and 'emotion_intensity'."
)

var fallbackCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "soulwhisper_emotion_fallback_total",
	Help: "Emotion detections answered with the default emotion",
}, []string{"reason"})

// Options for the Client
type Options struct {
	URL     string
	Key     string
	Model   string
	Timeout time.Duration
}

// Client detects emotion of an audio file using a multimodal model
type Client struct {
	httpclient *http.Client
	url        string
	key        string
	model      string
	timeout    time.Duration
}

// NewClient creates emotion detection client
func NewClient(opt Options) (*Client, error) {
	if opt.Key == "" {
		return nil, fmt.Errorf("no key")
	}
	res := Client{}
	res.url = opt.URL
	if res.url == "" {
		res.url = DefaultURL
	}
	res.key = opt.Key
	res.model = opt.Model
	if res.model == "" {
		res.model = DefaultModel
	}
	res.timeout = opt.Timeout
	if res.timeout <= 0 {
		res.timeout = time.Minute
	}
	res.httpclient = &http.Client{Transport: newTransport()}
	goapp.Log.Info().Str("url", res.url).Str("model", res.model).Dur("timeout", res.timeout).Msg("cfg: emotion")
	return &res, nil
}

// Detect returns emotion of the audio or the default one on any failure
func (c *Client) Detect(ctx context.Context, audioPath string) *api.Emotion {
	defer goapp.Estimate("emotion")()
	text, err := c.invoke(ctx, audioPath)
	if err != nil {
		goapp.Log.Warn().Err(err).Msg("emotion detection failed, using default")
		fallbackCount.WithLabelValues("call").Inc()
		return api.DefaultEmotion()
	}
	res := Parse(text)
	goapp.Log.Info().Str("type", string(res.Type)).Int("intensity", res.Intensity).Msg("emotion")
	return res
}

type content struct {
	Text  string `json:"text,omitempty"`
	Audio string `json:"audio,omitempty"`
}

type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type request struct {
	Model string `json:"model"`
	Input struct {
		Messages []message `json:"messages"`
	} `json:"input"`
}

type response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Output  struct {
		Choices []struct {
			Message struct {
				Content []content `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
}

func (c *Client) invoke(ctx context.Context, audioPath string) (string, error) {
	uri, err := dataURI(audioPath)
	if err != nil {
		return "", err
	}
	var inp request
	inp.Model = c.model
	inp.Input.Messages = []message{
		{Role: "system", Content: []content{{Text: systemPrompt}}},
		{Role: "user", Content: []content{{Audio: uri}, {Text: userPrompt}}},
	}
	b, err := json.Marshal(inp)
	if err != nil {
		return "", err
	}
	ctx, cancelF := context.WithTimeout(ctx, c.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.key)
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return "", fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", fmt.Errorf("can't invoke model: %w", err)
	}
	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("can't decode response: %w", err)
	}
	if res.Code != "" {
		return "", fmt.Errorf("model error %s: %s", res.Code, res.Message)
	}
	if len(res.Output.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	sb := strings.Builder{}
	for _, ct := range res.Output.Choices[0].Message.Content {
		sb.WriteString(ct.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty answer")
	}
	return sb.String(), nil
}

var mimeTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
}

func dataURI(audioPath string) (string, error) {
	b, err := os.ReadFile(audioPath)
	if err != nil {
		return "", fmt.Errorf("can't read audio: %w", err)
	}
	mt, ok := mimeTypes[audio.Ext(audioPath)]
	if !ok {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

func newTransport() http.RoundTripper {
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxIdleConns = 20
	res.MaxIdleConnsPerHost = 10
	res.IdleConnTimeout = 90 * time.Second
	return res
}
