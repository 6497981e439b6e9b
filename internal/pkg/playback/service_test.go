package playback

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/airenas/soulwhisper/internal/pkg/test"
	"github.com/airenas/soulwhisper/internal/pkg/test/mocks"
	"github.com/labstack/echo/v4"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const testID = "5d1e2f6a-90ab-4c3d-8e7f-112233445566"

var (
	filerMock *mocks.Filer
	dbMock    *mocks.DB
	tData     *Data
	tEcho     *echo.Echo
)

func initTest(t *testing.T) {
	t.Helper()
	filerMock = &mocks.Filer{}
	dbMock = &mocks.DB{}
	tData = &Data{Requests: dbMock, Reader: filerMock}
	tEcho = initRoutes(tData)
	dbMock.On("LoadRequest", mock.Anything, testID).Return(&persistence.ReqData{ID: testID, FileName: "diary.wav",
		Created: time.Now()}, nil)
}

func TestWrongPath(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/invalid", nil)
	test.Code(t, tEcho, req, http.StatusNotFound)
}

func TestWrongMethod(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodPost, "/audio/"+testID, nil)
	test.Code(t, tEcho, req, http.StatusMethodNotAllowed)
}

func Test_Audio(t *testing.T) {
	initTest(t)
	filerMock.On("LoadFile", mock.Anything, testID+"/diary.wav").Return(&testFileWrap{s: "audio", n: "diary.wav"}, nil)
	req := httptest.NewRequest(http.MethodGet, "/audio/"+testID, nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "audio", test.RStr(t, resp.Body))
	assert.Equal(t, "inline; filename=diary.wav", resp.Header().Get("Content-Disposition"))
}

func Test_Audio_NoStat(t *testing.T) {
	initTest(t)
	filerMock.On("LoadFile", mock.Anything, testID+"/diary.wav").Return(&testReader{Reader: strings.NewReader("audio")}, nil)
	req := httptest.NewRequest(http.MethodGet, "/audio/"+testID, nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "audio", test.RStr(t, resp.Body))
}

func Test_AudioHead(t *testing.T) {
	initTest(t)
	filerMock.On("LoadFile", mock.Anything, testID+"/diary.wav").Return(&testFileWrap{s: "audio", n: "diary.wav"}, nil)
	req := httptest.NewRequest(http.MethodHead, "/audio/"+testID, nil)
	resp := test.Code(t, tEcho, req, http.StatusOK)
	assert.Equal(t, "", test.RStr(t, resp.Body))
}

func Test_Audio_Fails(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		reqErr  error
		fileErr error
		code    int
	}{
		{name: "wrong id", id: "olia", code: http.StatusBadRequest},
		{name: "no request", id: testID, reqErr: fmt.Errorf("olia"), code: http.StatusNotFound},
		{name: "no file", id: testID, fileErr: minio.ErrorResponse{StatusCode: http.StatusNotFound}, code: http.StatusNotFound},
		{name: "no key", id: testID, fileErr: minio.ErrorResponse{Code: "NoSuchKey"}, code: http.StatusNotFound},
		{name: "file fail", id: testID, fileErr: fmt.Errorf("olia"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			initTest(t)
			if tt.reqErr != nil {
				dbMock.ExpectedCalls = nil
				dbMock.On("LoadRequest", mock.Anything, tt.id).Return(nil, tt.reqErr)
			}
			filerMock.On("LoadFile", mock.Anything, mock.Anything).Return(nil, tt.fileErr)
			req := httptest.NewRequest(http.MethodGet, "/audio/"+tt.id, nil)
			test.Code(t, tEcho, req, tt.code)
		})
	}
}

func Test_Live(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	test.Code(t, tEcho, req, http.StatusOK)
}

func Test_validate(t *testing.T) {
	assert.NotNil(t, validate(&Data{Reader: &mocks.Filer{}}))
	assert.NotNil(t, validate(&Data{Requests: &mocks.DB{}}))
	assert.Nil(t, validate(&Data{Reader: &mocks.Filer{}, Requests: &mocks.DB{}}))
}

type testReader struct{ *strings.Reader }

func (r *testReader) Close() error { return nil }

type testFileWrap struct {
	s string
	n string
}

func (fw *testFileWrap) Read(p []byte) (n int, err error) {
	return strings.NewReader(fw.s).Read(p)
}

func (fw *testFileWrap) Seek(offset int64, whence int) (int64, error) {
	return strings.NewReader(fw.s).Seek(offset, whence)
}

func (fw *testFileWrap) Close() error {
	return nil
}

func (fw *testFileWrap) Stat() (fs.FileInfo, error) {
	return &testStatsWrap{size: int64(len(fw.s)), name: fw.n}, nil
}

type testStatsWrap struct {
	size int64
	name string
}

func (sw *testStatsWrap) IsDir() bool        { return false }
func (sw *testStatsWrap) ModTime() time.Time { return time.Now() }
func (sw *testStatsWrap) Mode() fs.FileMode  { return fs.ModeTemporary }
func (sw *testStatsWrap) Name() string       { return sw.name }
func (sw *testStatsWrap) Size() int64        { return sw.size }
func (sw *testStatsWrap) Sys() any           { return nil }
