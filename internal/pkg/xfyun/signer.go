package xfyun

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"path/filepath"
	"strconv"
	"time"
)

// uploadSession keeps correlation data for one transcription
type uploadSession struct {
	appID   string
	signa   string
	ts      string
	orderID string
}

func newSession(appID, secret string, now time.Time) *uploadSession {
	ts := strconv.FormatInt(now.Unix(), 10)
	return &uploadSession{appID: appID, ts: ts, signa: signature(appID, secret, ts)}
}

// signature is base64(hmac-sha1(secret, hex(md5(appID + ts))))
func signature(appID, secret, ts string) string {
	sum := md5.Sum([]byte(appID + ts))
	h := hmac.New(sha1.New, []byte(secret))
	_, _ = h.Write([]byte(hex.EncodeToString(sum[:])))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (s *uploadSession) authParams() url.Values {
	res := url.Values{}
	res.Set("appId", s.appID)
	res.Set("signa", s.signa)
	res.Set("ts", s.ts)
	return res
}

func (s *uploadSession) uploadParams(fileName string, fileSize int64, duration, language string) url.Values {
	res := s.authParams()
	res.Set("fileSize", strconv.FormatInt(fileSize, 10))
	res.Set("fileName", filepath.Base(fileName))
	res.Set("duration", duration)
	res.Set("language", language)
	return res
}

func (s *uploadSession) resultParams() url.Values {
	res := s.authParams()
	res.Set("orderId", s.orderID)
	res.Set("resultType", "transfer,predict")
	return res
}
