package pipeline

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/emotion"
	"github.com/airenas/soulwhisper/internal/pkg/test"
	"github.com/airenas/soulwhisper/internal/pkg/xfyun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lattice(words ...string) string {
	ws := make([]map[string]interface{}, 0, len(words))
	for _, w := range words {
		ws = append(ws, map[string]interface{}{"cw": []map[string]string{{"w": w}}})
	}
	best, _ := json.Marshal(map[string]interface{}{"st": map[string]interface{}{"rt": []interface{}{map[string]interface{}{"ws": ws}}}})
	res, _ := json.Marshal(map[string]interface{}{"lattice": []map[string]string{{"json_1best": string(best)}}})
	return string(res)
}

func newASRServer(t *testing.T, text ...string) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/upload":
			_, _ = rw.Write([]byte(`{"code":"000000","content":{"orderId":"o1"}}`))
		case "/getResult":
			if atomic.AddInt32(&polls, 1) < 3 {
				_, _ = rw.Write([]byte(`{"code":"000000","content":{"orderInfo":{"status":3}}}`))
				return
			}
			_, _ = rw.Write([]byte(fmt.Sprintf(`{"code":"000000","content":{"orderInfo":{"status":4},"orderResult":%q}}`,
				lattice(text...))))
		default:
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &polls
}

func newEmotionServer(t *testing.T, code int, answer string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rw.WriteHeader(code)
		b, _ := json.Marshal(answer)
		_, _ = rw.Write([]byte(`{"output":{"choices":[{"message":{"content":[{"text":` + string(b) + `}]}}]}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newE2ECoordinator(t *testing.T, asrURL, emURL string) *Coordinator {
	t.Helper()
	tr, err := xfyun.NewClient(xfyun.Options{URL: asrURL, AppID: "app1", Secret: "secret",
		PollInterval: time.Millisecond * 10, MaxPolls: 10})
	require.Nil(t, err)
	em, err := emotion.NewClient(emotion.Options{URL: emURL, Key: "k"})
	require.Nil(t, err)
	res, err := NewCoordinator(tr, em)
	require.Nil(t, err)
	return res
}

func TestE2E_HappyClip(t *testing.T) {
	asr, polls := newASRServer(t, "I feel", " great today.")
	em := newEmotionServer(t, http.StatusOK, `{"emotion_type":"happy","emotion_intensity":8}`)
	c := newE2ECoordinator(t, asr.URL, em.URL)
	dir := t.TempDir()

	r, err := c.ProcessUpload(test.Ctx(t), dir,
		&api.AudioUpload{Name: "happy_clip.wav", Size: 9, Reader: strings.NewReader("RIFF-olia")})

	require.Nil(t, err)
	assert.Equal(t, &api.Result{Text: "I feel great today.", Emotion: api.Happy, Intensity: 8}, r)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestE2E_EmotionDown(t *testing.T) {
	asr, _ := newASRServer(t, "olia")
	em := newEmotionServer(t, http.StatusServiceUnavailable, "")
	c := newE2ECoordinator(t, asr.URL, em.URL)

	r, err := c.ProcessUpload(test.Ctx(t), t.TempDir(),
		&api.AudioUpload{Name: "a.wav", Size: 4, Reader: strings.NewReader("olia")})

	require.Nil(t, err)
	assert.Equal(t, &api.Result{Text: "olia", Emotion: api.Neutral, Intensity: 5}, r)
}

func TestE2E_WrongFile(t *testing.T) {
	asr, polls := newASRServer(t, "olia")
	em := newEmotionServer(t, http.StatusOK, "happy")
	c := newE2ECoordinator(t, asr.URL, em.URL)
	dir := filepath.Join(t.TempDir(), "tmp")

	_, err := c.ProcessUpload(test.Ctx(t), dir,
		&api.AudioUpload{Name: "notes.txt", Size: 4, Reader: strings.NewReader("olia")})

	require.NotNil(t, err)
	assert.Equal(t, "wrong file extension: .txt", err.Error())
	assert.Equal(t, int32(0), atomic.LoadInt32(polls))
}
