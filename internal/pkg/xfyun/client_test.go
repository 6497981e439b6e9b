package xfyun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testReq struct {
	path  string
	query string
	body  string
}

type testServer struct {
	lock     sync.Mutex
	reqs     []testReq
	upload   string
	upCode   int
	statuses []string
}

func (s *testServer) handle(rw http.ResponseWriter, req *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	b, _ := io.ReadAll(req.Body)
	s.reqs = append(s.reqs, testReq{path: req.URL.Path, query: req.URL.RawQuery, body: string(b)})
	switch req.URL.Path {
	case "/upload":
		if s.upCode != 0 {
			rw.WriteHeader(s.upCode)
		}
		_, _ = rw.Write([]byte(s.upload))
	case "/getResult":
		if len(s.statuses) == 0 {
			rw.WriteHeader(http.StatusInternalServerError)
			return
		}
		r := s.statuses[0]
		if len(s.statuses) > 1 {
			s.statuses = s.statuses[1:]
		}
		_, _ = rw.Write([]byte(r))
	default:
		rw.WriteHeader(http.StatusNotFound)
	}
}

func (s *testServer) count(path string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	res := 0
	for _, r := range s.reqs {
		if r.path == path {
			res++
		}
	}
	return res
}

func initTestServer(t *testing.T, ts *testServer) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(ts.handle))
	t.Cleanup(func() { server.Close() })
	c := Client{}
	c.httpclient = server.Client()
	c.url = server.URL
	c.appID = "app1"
	c.secret = "secret"
	c.language = "en"
	c.duration = "200"
	c.pollInterval = time.Millisecond * 10
	c.timeout = time.Second
	c.uploadTimeout = time.Second
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return &c
}

func uploadOK() string {
	return `{"code":"000000","descInfo":"success","content":{"orderId":"o1"}}`
}

func statusResp(st int, res string) string {
	return fmt.Sprintf(`{"code":"000000","content":{"orderInfo":{"status":%d},"orderResult":%q}}`, st, res)
}

func audioFile(t *testing.T) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "happy_clip.wav")
	require.Nil(t, os.WriteFile(fn, []byte("RIFF-olia"), 0600))
	return fn
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		opt     Options
		wantErr bool
	}{
		{name: "OK", opt: Options{AppID: "a", Secret: "s"}, wantErr: false},
		{name: "no app", opt: Options{Secret: "s"}, wantErr: true},
		{name: "no secret", opt: Options{AppID: "a"}, wantErr: true},
		{name: "wrong polls", opt: Options{AppID: "a", Secret: "s", MaxPolls: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClient(tt.opt)
			assert.Equal(t, tt.wantErr, err != nil)
			if !tt.wantErr {
				require.NotNil(t, got)
				assert.Equal(t, DefaultURL, got.url)
				assert.Equal(t, time.Second*5, got.pollInterval)
				assert.Equal(t, "en", got.language)
			}
		})
	}
}

func TestTranscribe(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{statusResp(1, ""), statusResp(3, ""),
		statusResp(4, makeOrderResult(t, []string{"I feel", " great"}))}}
	c := initTestServer(t, ts)

	r, err := c.Transcribe(test.Ctx(t), audioFile(t))

	require.Nil(t, err)
	assert.Equal(t, "I feel great", r.Text)
	assert.Equal(t, 1, ts.count("/upload"))
	assert.Equal(t, 3, ts.count("/getResult"))
	assert.Equal(t, "RIFF-olia", ts.reqs[0].body)
	assert.Contains(t, ts.reqs[0].query, "fileName=happy_clip.wav")
	assert.Contains(t, ts.reqs[0].query, "fileSize=9")
	assert.Contains(t, ts.reqs[1].query, "orderId=o1")
	assert.Contains(t, ts.reqs[1].query, "resultType=transfer%2Cpredict")
}

func TestTranscribe_MaxPolls(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{statusResp(3, "")}}
	c := initTestServer(t, ts)
	c.maxPolls = 3

	_, err := c.Transcribe(test.Ctx(t), audioFile(t))

	require.NotNil(t, err)
	var te *api.TranscriptionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 3, ts.count("/getResult"))
}

func TestTranscribe_Failed(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{statusResp(2, ""), statusResp(-1, "")}}
	c := initTestServer(t, ts)

	_, err := c.Transcribe(test.Ctx(t), audioFile(t))

	var te *api.TranscriptionError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, 2, ts.count("/getResult"))
}

func TestTranscribe_UnexpectedStatus(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{statusResp(9, "")}}
	c := initTestServer(t, ts)

	_, err := c.Transcribe(test.Ctx(t), audioFile(t))

	assert.NotNil(t, err)
	assert.Equal(t, 1, ts.count("/getResult"))
}

func TestTranscribe_UploadFails(t *testing.T) {
	tests := []struct {
		name   string
		upload string
		code   int
	}{
		{name: "code", upload: `{"code":"26601","descInfo":"wrong signa"}`},
		{name: "no order", upload: `{"code":"000000","content":{}}`},
		{name: "json", upload: `olia`},
		{name: "http", upload: uploadOK(), code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &testServer{upload: tt.upload, upCode: tt.code, statuses: []string{statusResp(4, "")}}
			c := initTestServer(t, ts)

			_, err := c.Transcribe(test.Ctx(t), audioFile(t))

			var te *api.TranscriptionError
			assert.True(t, errors.As(err, &te))
			assert.Equal(t, 0, ts.count("/getResult"))
		})
	}
}

func TestTranscribe_ResultCodeFails(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{`{"code":"26625","descInfo":"no money"}`}}
	c := initTestServer(t, ts)

	_, err := c.Transcribe(test.Ctx(t), audioFile(t))

	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "26625")
	assert.Equal(t, 1, ts.count("/getResult"))
}

func TestTranscribe_NoFile(t *testing.T) {
	ts := &testServer{upload: uploadOK()}
	c := initTestServer(t, ts)

	_, err := c.Transcribe(test.Ctx(t), filepath.Join(t.TempDir(), "none.wav"))

	assert.NotNil(t, err)
	assert.Equal(t, 0, ts.count("/upload"))
}

func TestTranscribe_Canceled(t *testing.T) {
	ts := &testServer{upload: uploadOK(), statuses: []string{statusResp(3, "")}}
	c := initTestServer(t, ts)
	c.pollInterval = time.Second * 10
	ctx, cf := context.WithTimeout(context.Background(), time.Millisecond*100)
	defer cf()

	start := time.Now()
	_, err := c.Transcribe(ctx, audioFile(t))

	assert.NotNil(t, err)
	assert.Less(t, time.Since(start), time.Second*5)
}
