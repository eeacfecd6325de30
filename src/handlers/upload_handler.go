package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/birizinit/meuacessor/src/config"
	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/storage"
)

// HandleUploadProfileImage recebe a imagem de perfil via multipart/form-data
// no campo "image". A validação de tipo e conteúdo vive no UploadService.
func (h *UserHandler) HandleUploadProfileImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Autenticação necessária", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxUploadSizeBytes+4096)
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "userID", userID, "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		sendJSONError(w, fmt.Sprintf("Falha ao processar ou o ficheiro é demasiado grande (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("image")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "userID", userID, "error", err)
		sendJSONError(w, "Falha ao obter o ficheiro do pedido. Use o campo 'image'.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	publicPath, err := h.uploadService.ProcessProfileImage(
		userID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		logger.L.Warn("Profile image rejected", "userID", userID, "filename", fileHeader.Filename, "error", err)
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{"profileImage": publicPath})
}

// ServeUploadedFile entrega imagens guardadas em GET /uploads/{filename}.
func ServeUploadedFile(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "filename")
		fullPath, err := store.Path(name)
		if err != nil {
			sendJSONError(w, "Ficheiro não encontrado", http.StatusNotFound)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, fullPath)
	}
}
