package utils

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(minio.ErrorResponse{StatusCode: http.StatusNotFound}))
	assert.True(t, IsNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", minio.ErrorResponse{StatusCode: http.StatusNotFound})))
	assert.False(t, IsNotFound(minio.ErrorResponse{StatusCode: http.StatusForbidden}))
	assert.False(t, IsNotFound(fmt.Errorf("olia")))
	assert.False(t, IsNotFound(nil))
}
