package utils

import (
	"errors"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// IsNotFound returns true if the error is a minio missing object error
func IsNotFound(err error) bool {
	var errTest minio.ErrorResponse
	return errors.As(err, &errTest) && (errTest.StatusCode == http.StatusNotFound || errTest.Code == "NoSuchKey")
}
