package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const uploadDir = "uploads"

// EnsureUploadDir creates the local uploads directory if it doesn't exist.
// Post images are served from here via the static /uploads route.
func EnsureUploadDir() error {
	return os.MkdirAll(uploadDir, os.ModePerm)
}

// SavePostImage stores an uploaded post image under a generated name and
// returns the URL path the client can load it from.
func SavePostImage(fileHeader *multipart.FileHeader) (string, error) {
	name := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	destPath := filepath.Join(uploadDir, name)

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("/uploads/%s", name), nil
}
