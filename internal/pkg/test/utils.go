package test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// Invoke makes a request call, the body is drained on test cleanup
func Invoke(t *testing.T, cl *http.Client, r *http.Request) *http.Response {
	t.Helper()
	resp, err := cl.Do(r)
	require.Nil(t, err, "not nil error = %v", err)
	t.Cleanup(func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	})
	return resp
}

// CheckCode checks response code, prints the body on mismatch
func CheckCode(t *testing.T, resp *http.Response, expected int) *http.Response {
	t.Helper()
	if resp.StatusCode != expected {
		b, _ := io.ReadAll(resp.Body)
		require.Equal(t, expected, resp.StatusCode, string(b))
	}
	return resp
}

// Decode decodes json response body
func Decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var res T
	require.Nil(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

// Ctx returns a context canceled on test end
func Ctx(t *testing.T) context.Context {
	t.Helper()
	ctx, cf := context.WithTimeout(context.Background(), time.Second*20)
	t.Cleanup(cf)
	return ctx
}

// Code serves req with echo and checks the response code
func Code(t *testing.T, tEcho *echo.Echo, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	tResp := httptest.NewRecorder()
	tEcho.ServeHTTP(tResp, req)
	require.Equal(t, code, tResp.Code, tResp.Body.String())
	return tResp
}

// RStr reads all to string
func RStr(t *testing.T, r io.Reader) string {
	t.Helper()
	b, err := io.ReadAll(r)
	require.Nil(t, err)
	return string(b)
}

// Upload describes a multipart form: one optional file plus text fields
type Upload struct {
	Field   string
	File    string
	Content string
	Params  [][2]string
}

// NewUploadRequest creates a multipart POST request for echo handler tests
func NewUploadRequest(path string, up Upload) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if up.File != "" {
		part, _ := writer.CreateFormFile(up.Field, up.File)
		_, _ = io.Copy(part, strings.NewReader(up.Content))
	}
	for _, p := range up.Params {
		_ = writer.WriteField(p[0], p[1])
	}
	_ = writer.Close()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

// NewJSONRequest creates a json POST request for echo handler tests
func NewJSONRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
