package intake

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/analytics"
	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/chat"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/test"
	"github.com/airenas/soulwhisper/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pipeMock *mocks.Pipeline
	dbMock   *mocks.DB
	llmMock  *mocks.LLM
	tData    *Data
	tEcho    *echo.Echo
)

func initTest(t *testing.T) {
	t.Helper()
	pipeMock = &mocks.Pipeline{}
	dbMock = &mocks.DB{}
	llmMock = &mocks.LLM{}
	cs, err := chat.NewService(llmMock, chat.NewMemoryStore())
	require.Nil(t, err)
	an, err := analytics.NewAnalyzer(dbMock)
	require.Nil(t, err)
	tData = &Data{TempDir: t.TempDir(), Pipeline: pipeMock, Saver: dbMock, Chat: cs, Analyzer: an}
	tEcho = initRoutes(tData)
}

func newTestRequest(path, file, bodyText string, params [][2]string) *http.Request {
	return test.NewUploadRequest(path, test.Upload{Field: api.PrmFile, File: file, Content: bodyText, Params: params})
}

func TestValidate(t *testing.T) {
	initTest(t)
	assert.Nil(t, validate(tData))
	tests := []struct {
		name string
		f    func(d *Data)
	}{
		{name: "pipeline", f: func(d *Data) { d.Pipeline = nil }},
		{name: "saver", f: func(d *Data) { d.Saver = nil }},
		{name: "chat", f: func(d *Data) { d.Chat = nil }},
		{name: "analyzer", f: func(d *Data) { d.Analyzer = nil }},
		{name: "dir", f: func(d *Data) { d.TempDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := *tData
			tt.f(&d)
			assert.NotNil(t, validate(&d))
		})
	}
}

func TestLive(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, `{"service":"OK"}`, test.RStr(t, resp.Body))
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestDiaryAudio(t *testing.T) {
	initTest(t)
	res := &api.Result{Text: "I feel great today.", Emotion: api.Happy, Intensity: 8}
	pipeMock.On("ProcessUpload", mock.Anything, tData.TempDir, mock.Anything).Return(res, nil)
	dbMock.On("SaveDiary", mock.Anything, "u1", res).Return("d1", nil)

	req := newTestRequest("/diary/audio", "happy_clip.wav", "olia", [][2]string{{api.PrmUser, "u1"}})
	resp := test.Code(t, tEcho, req, http.StatusOK)

	assert.JSONEq(t, `{"diaryId":"d1","text":"I feel great today.","emotion_type":"happy","emotion_intensity":8}`,
		test.RStr(t, resp.Body))
	up := pipeMock.Calls[0].Arguments[2].(*api.AudioUpload)
	assert.Equal(t, "happy_clip.wav", up.Name)
	assert.Equal(t, int64(4), up.Size)
}

func TestDiaryAudio_UserHeader(t *testing.T) {
	initTest(t)
	res := &api.Result{Text: "olia", Emotion: api.Neutral, Intensity: 5}
	pipeMock.On("ProcessUpload", mock.Anything, mock.Anything, mock.Anything).Return(res, nil)
	dbMock.On("SaveDiary", mock.Anything, "u2", res).Return("d1", nil)

	req := newTestRequest("/diary/audio", "a.wav", "olia", nil)
	req.Header.Set(api.HeaderUser, "u2")
	test.Code(t, tEcho, req, http.StatusOK)
}

func TestDiaryAudio_Fail(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		user     string
		pipeErr  error
		saveErr  error
		wantCode int
		saves    int
	}{
		{name: "no user", file: "a.wav", wantCode: http.StatusBadRequest},
		{name: "no file", user: "u1", wantCode: http.StatusBadRequest},
		{name: "validation", file: "a.txt", user: "u1", pipeErr: api.NewValidationError("wrong file extension: .txt"),
			wantCode: http.StatusBadRequest},
		{name: "transcription", file: "a.wav", user: "u1", pipeErr: api.NewTranscriptionError(fmt.Errorf("olia")),
			wantCode: http.StatusBadGateway},
		{name: "other", file: "a.wav", user: "u1", pipeErr: fmt.Errorf("olia"), wantCode: http.StatusInternalServerError},
		{name: "persistence", file: "a.wav", user: "u1", saveErr: api.NewPersistenceError(fmt.Errorf("olia")),
			wantCode: http.StatusInternalServerError, saves: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			var res *api.Result
			if tt.pipeErr == nil {
				res = &api.Result{Text: "olia", Emotion: api.Sad, Intensity: 2}
			}
			pipeMock.On("ProcessUpload", mock.Anything, mock.Anything, mock.Anything).Return(res, tt.pipeErr)
			dbMock.On("SaveDiary", mock.Anything, mock.Anything, mock.Anything).Return("", tt.saveErr)
			var prm [][2]string
			if tt.user != "" {
				prm = append(prm, [2]string{api.PrmUser, tt.user})
			}

			test.Code(t, tEcho, newTestRequest("/diary/audio", tt.file, "olia", prm), tt.wantCode)

			dbMock.AssertNumberOfCalls(t, "SaveDiary", tt.saves)
		})
	}
}

func TestDiaryAudio_PersistenceMessage(t *testing.T) {
	initTest(t)
	pipeMock.On("ProcessUpload", mock.Anything, mock.Anything, mock.Anything).
		Return(&api.Result{Text: "olia", Emotion: api.Sad, Intensity: 2}, nil)
	dbMock.On("SaveDiary", mock.Anything, mock.Anything, mock.Anything).
		Return("", api.NewPersistenceError(fmt.Errorf("db down")))

	resp := test.Code(t, tEcho, newTestRequest("/diary/audio", "a.wav", "olia", [][2]string{{api.PrmUser, "u1"}}),
		http.StatusInternalServerError)

	assert.Contains(t, test.RStr(t, resp.Body), "can't save diary")
}

func TestProcess(t *testing.T) {
	initTest(t)
	pipeMock.On("ProcessUpload", mock.Anything, mock.Anything, mock.Anything).
		Return(&api.Result{Text: "olia", Emotion: api.Angry, Intensity: 9}, nil)

	resp := test.Code(t, tEcho, newTestRequest("/process", "a.mp3", "olia", nil), http.StatusOK)

	assert.JSONEq(t, `{"text":"olia","emotion_type":"angry","emotion_intensity":9}`, test.RStr(t, resp.Body))
	dbMock.AssertNumberOfCalls(t, "SaveDiary", 0)
}

func TestASR(t *testing.T) {
	initTest(t)
	pipeMock.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(&api.Transcription{Text: "olia"}, nil)

	resp := test.Code(t, tEcho, newTestRequest("/asr", "a.mp3", "olia", nil), http.StatusOK)

	assert.JSONEq(t, `{"text":"olia"}`, test.RStr(t, resp.Body))
}

func TestASR_Fail(t *testing.T) {
	initTest(t)
	pipeMock.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, api.NewTranscriptionError(fmt.Errorf("olia")))
	test.Code(t, tEcho, newTestRequest("/asr", "a.mp3", "olia", nil), http.StatusBadGateway)
}

func TestEmotion(t *testing.T) {
	initTest(t)
	pipeMock.On("DetectEmotion", mock.Anything, mock.Anything, mock.Anything).
		Return(&api.Emotion{Type: api.Happy, Intensity: 7}, nil)

	resp := test.Code(t, tEcho, newTestRequest("/emotion", "a.flac", "olia", nil), http.StatusOK)

	assert.JSONEq(t, `{"emotion":{"emotion_type":"happy","emotion_intensity":7}}`, test.RStr(t, resp.Body))
}

func TestEmotion_NoForm(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/emotion", strings.NewReader("olia"))
	test.Code(t, tEcho, req, http.StatusBadRequest)
	pipeMock.AssertNumberOfCalls(t, "DetectEmotion", 0)
}

func TestChat(t *testing.T) {
	initTest(t)
	llmMock.On("Complete", mock.Anything, mock.Anything).Return("How was it?", nil).Once()
	llmMock.On("Complete", mock.Anything, mock.Anything).Return("I see.", nil).Once()

	resp := test.Code(t, tEcho, test.NewJSONRequest("/chat/start", `{"user_id":"u1","diary_content":"long day"}`),
		http.StatusOK)
	assert.JSONEq(t, `{"session_id":"u1","response":"How was it?"}`, test.RStr(t, resp.Body))

	resp = test.Code(t, tEcho, test.NewJSONRequest("/chat/message", `{"user_id":"u1","message":"tiring"}`),
		http.StatusOK)
	assert.JSONEq(t, `{"response":"I see."}`, test.RStr(t, resp.Body))

	resp = test.Code(t, tEcho, test.NewJSONRequest("/chat/end", `{"user_id":"u1"}`), http.StatusOK)
	assert.JSONEq(t, `{"message":"Chat session has ended"}`, test.RStr(t, resp.Body))

	test.Code(t, tEcho, test.NewJSONRequest("/chat/message", `{"user_id":"u1","message":"again"}`), http.StatusNotFound)
	llmMock.AssertNumberOfCalls(t, "Complete", 2)
}

func TestChat_Fail(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{name: "start empty", path: "/chat/start", body: `{"user_id":"u1","diary_content":""}`,
			wantCode: http.StatusBadRequest},
		{name: "start no user", path: "/chat/start", body: `{"diary_content":"olia"}`, wantCode: http.StatusBadRequest},
		{name: "message empty", path: "/chat/message", body: `{"user_id":"u1"}`, wantCode: http.StatusBadRequest},
		{name: "message no session", path: "/chat/message", body: `{"user_id":"u1","message":"olia"}`,
			wantCode: http.StatusNotFound},
		{name: "bad json", path: "/chat/start", body: `{"user_id":`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			test.Code(t, tEcho, test.NewJSONRequest(tt.path, tt.body), tt.wantCode)
			llmMock.AssertNumberOfCalls(t, "Complete", 0)
		})
	}
}

func TestChat_LLMFails(t *testing.T) {
	initTest(t)
	llmMock.On("Complete", mock.Anything, mock.Anything).Return("", fmt.Errorf("olia"))

	resp := test.Code(t, tEcho, test.NewJSONRequest("/chat/start", `{"user_id":"u1","diary_content":"long day"}`),
		http.StatusOK)

	assert.JSONEq(t, `{"session_id":"u1","response":"`+chat.FallbackReply+`"}`, test.RStr(t, resp.Body))
}

func TestAnalytics(t *testing.T) {
	initTest(t)
	dbMock.On("LoadDiaries", mock.Anything, "u1", mock.Anything).Return([]*persistence.Diary{
		{Mood: "happy", Content: "sunny morning"}, {Mood: "sad", Content: "rainy morning"}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/analytics/u1?days=3", nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)

	assert.JSONEq(t, `{"emotions":{"Happy":50,"Sad":50},"keywords":["morning","sunny","rainy"]}`,
		test.RStr(t, resp.Body))
	since := dbMock.Calls[0].Arguments[2].(time.Time)
	assert.InDelta(t, 3*24, time.Since(since).Hours(), 0.1)
}

func TestAnalytics_Fail(t *testing.T) {
	initTest(t)
	test.Code(t, tEcho, httptest.NewRequest(http.MethodGet, "/analytics/u1?days=x", nil), http.StatusBadRequest)
	test.Code(t, tEcho, httptest.NewRequest(http.MethodGet, "/analytics/u1?days=-1", nil), http.StatusBadRequest)
	dbMock.On("LoadDiaries", mock.Anything, "u1", mock.Anything).Return(nil, fmt.Errorf("olia"))
	test.Code(t, tEcho, httptest.NewRequest(http.MethodGet, "/analytics/u1", nil), http.StatusInternalServerError)
}
