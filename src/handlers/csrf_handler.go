package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/birizinit/meuacessor/src/logger"
)

const csrfCookieName = "_csrf"

// GetCSRFToken emite o par cookie+token para o esquema double-submit. O
// token devolvido no corpo é assinado com a chave do servidor, por isso
// um atacante não consegue forjar um par válido.
func GetCSRFToken(csrfKey []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := signedCSRFToken(csrfKey)

		http.SetCookie(w, &http.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			SameSite: http.SameSiteLaxMode,
			HttpOnly: true,
			Secure:   r.TLS != nil,
			MaxAge:   3600,
		})

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-CSRF-Token", token)
		json.NewEncoder(w).Encode(map[string]string{"csrfToken": token})
	}
}

// signedCSRFToken produz "<nonce>.<hmac(nonce)>" em base64 URL-safe.
func signedCSRFToken(csrfKey []byte) string {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		logger.L.Error("Error generating random bytes for CSRF token", "error", err)
		nonce = fmt.Appendf(nil, "%d", time.Now().UnixNano())
	}
	mac := hmac.New(sha256.New, csrfKey)
	mac.Write(nonce)
	return base64.RawURLEncoding.EncodeToString(nonce) + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validCSRFToken(csrfKey []byte, token string) bool {
	nonceB64, sigB64, ok := strings.Cut(token, ".")
	if !ok {
		return false
	}
	nonce, err := base64.RawURLEncoding.DecodeString(nonceB64)
	if err != nil {
		return false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, csrfKey)
	mac.Write(nonce)
	return hmac.Equal(sig, mac.Sum(nil))
}

// CSRFMiddleware valida o esquema double-submit nos métodos que alteram
// estado: o header X-CSRF-Token tem de bater com o cookie e a assinatura
// tem de ser válida.
func CSRFMiddleware(csrfKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			headerToken := r.Header.Get("X-CSRF-Token")
			cookie, errCookie := r.Cookie(csrfCookieName)

			if headerToken != "" && errCookie == nil &&
				hmac.Equal([]byte(headerToken), []byte(cookie.Value)) &&
				validCSRFToken(csrfKey, headerToken) {
				next.ServeHTTP(w, r)
				return
			}

			logger.L.Warn("CSRF validation failed",
				"method", r.Method,
				"url", r.URL.String(),
				"headerTokenExists", headerToken != "",
				"cookiePresent", errCookie == nil,
				"origin", r.Header.Get("Origin"),
				"referer", r.Header.Get("Referer"),
			)
			sendJSONError(w, "Falha na validação do token CSRF", http.StatusForbidden)
		})
	}
}
