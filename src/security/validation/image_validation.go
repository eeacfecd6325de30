package validation

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/birizinit/meuacessor/src/logger"
)

// AllowedImageContentTypes is a map for quick lookup of allowed
// client-declared MIME types for profile image uploads.
var AllowedImageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// AllowedImageExtensions is the extension allowlist, lowercase with dot.
var AllowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ValidateImageContentType checks the Content-Type header provided by the client.
func ValidateImageContentType(contentType string) error {
	normalized := strings.ToLower(strings.Split(contentType, ";")[0])
	if !AllowedImageContentTypes[strings.TrimSpace(normalized)] {
		logger.L.Warn("Disallowed client-declared image Content-Type", "contentType", contentType)
		return fmt.Errorf("tipo de ficheiro '%s' não é permitido para imagem de perfil", contentType)
	}
	return nil
}

// ValidateImageExtension checks the filename extension against the allowlist
// and returns the normalized extension.
func ValidateImageExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !AllowedImageExtensions[ext] {
		logger.L.Warn("Disallowed image extension", "filename", filename)
		return "", fmt.Errorf("extensão de ficheiro '%s' não é permitida", ext)
	}
	return ext, nil
}

// ValidateImageMagicBytes checks the actual file signature against the
// allowed image formats and resets the read pointer for the caller.
func ValidateImageMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 12)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for signature checking: %w", err)
	}

	// Reset the read pointer so the storage layer can write the full file.
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	if n == 0 {
		return "", fmt.Errorf("file is empty")
	}
	buffer = buffer[:n]

	switch {
	case bytes.HasPrefix(buffer, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg", nil
	case bytes.HasPrefix(buffer, []byte{0x89, 0x50, 0x4E, 0x47}):
		return "image/png", nil
	case bytes.HasPrefix(buffer, []byte("GIF")):
		return "image/gif", nil
	case len(buffer) >= 12 && bytes.HasPrefix(buffer, []byte("RIFF")) && bytes.Equal(buffer[8:12], []byte("WEBP")):
		return "image/webp", nil
	}

	logger.L.Warn("File rejected: unrecognized image signature")
	return "", fmt.Errorf("o conteúdo do ficheiro não corresponde a uma imagem suportada")
}
