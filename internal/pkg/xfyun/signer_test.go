package xfyun

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignature(t *testing.T) {
	assert.Equal(t, "qWt+SSzN7CnuWi2Id2XsMNdgvHg=", signature("app1", "secret", "1700000000"))
	assert.NotEqual(t, signature("app1", "secret", "1700000000"), signature("app1", "secret", "1700000001"))
}

func TestSession_Params(t *testing.T) {
	s := newSession("app1", "secret", time.Unix(1700000000, 0))
	assert.Equal(t, "1700000000", s.ts)
	s.orderID = "o1"

	up := s.uploadParams("/tmp/dir/a.wav", 10, "200", "en")
	assert.Equal(t, "app1", up.Get("appId"))
	assert.Equal(t, "qWt+SSzN7CnuWi2Id2XsMNdgvHg=", up.Get("signa"))
	assert.Equal(t, "10", up.Get("fileSize"))
	assert.Equal(t, "a.wav", up.Get("fileName"))
	assert.Equal(t, "200", up.Get("duration"))
	assert.Equal(t, "en", up.Get("language"))

	rp := s.resultParams()
	assert.Equal(t, "o1", rp.Get("orderId"))
	assert.Contains(t, rp.Encode(), "resultType=transfer%2Cpredict")
	assert.Equal(t, "", rp.Get("fileName"))
}
