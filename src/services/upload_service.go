package services

import (
	"database/sql"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/model"
	"github.com/birizinit/meuacessor/src/security/validation"
	"github.com/birizinit/meuacessor/src/storage"
)

type uploadServiceImpl struct {
	db    *sql.DB
	store storage.Storage
}

func NewUploadService(db *sql.DB, store storage.Storage) UploadService {
	return &uploadServiceImpl{db: db, store: store}
}

// ProcessProfileImage runs the full pipeline: size limit, declared MIME,
// extension allowlist, magic byte sniffing, store, update the user row and
// drop the previous image. Stored files are named
// profile-<userID>-<unix millis>.<ext>.
func (s *uploadServiceImpl) ProcessProfileImage(userID int64, filename, contentType string, size int64, content io.ReadSeeker) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("ficheiro vazio")
	}
	if size > config.Cfg.MaxUploadSizeBytes {
		return "", fmt.Errorf("a imagem excede o limite de %d bytes", config.Cfg.MaxUploadSizeBytes)
	}
	if err := validation.ValidateImageContentType(contentType); err != nil {
		return "", err
	}
	ext, err := validation.ValidateImageExtension(filename)
	if err != nil {
		return "", err
	}
	if _, err := validation.ValidateImageMagicBytes(content); err != nil {
		return "", err
	}

	user, err := model.GetUserByID(s.db, userID)
	if err != nil {
		return "", fmt.Errorf("loading user %d: %w", userID, err)
	}

	storedName := fmt.Sprintf("profile-%d-%d%s", userID, time.Now().UnixMilli(), ext)
	publicPath, err := s.store.Save(storedName, content)
	if err != nil {
		return "", fmt.Errorf("storing profile image: %w", err)
	}

	previous := user.ProfileImage
	if err := user.UpdateProfileImage(s.db, publicPath); err != nil {
		// Keep the database authoritative; drop the freshly stored file.
		s.store.Remove(storedName)
		return "", fmt.Errorf("updating profile image for user %d: %w", userID, err)
	}

	if previous != "" {
		if err := s.store.Remove(path.Base(previous)); err != nil {
			logger.L.Warn("Failed to remove previous profile image", "userID", userID, "file", previous, "error", err)
		}
	}

	logger.L.Info("Profile image updated", "userID", userID, "file", storedName)
	return publicPath, nil
}

// RemoveProfileImage deletes a stored image given the public path saved on
// the user row. A missing file is not an error.
func (s *uploadServiceImpl) RemoveProfileImage(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	return s.store.Remove(path.Base(publicPath))
}
