package utils

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// MakeValidateFileName returns a safe storage name <ID>/<base name>
func MakeValidateFileName(ID, fileName string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + fileName))
	if base == "/" || base == "." || base == "" {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	if name == "" {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	res := name + strings.ToLower(ext)
	if ID == "" {
		return res, nil
	}
	return path.Join(ID, res), nil
}
