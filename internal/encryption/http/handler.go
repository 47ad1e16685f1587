// Package http provides the KMS HTTP API: DEK-backed encryption and decryption, key
// rotation and status queries.
package http

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	encryptionDomain "github.com/allisson/kagimori/internal/encryption/domain"
	"github.com/allisson/kagimori/internal/encryption/http/dto"
	encryptionUseCase "github.com/allisson/kagimori/internal/encryption/usecase"
	"github.com/allisson/kagimori/internal/httputil"
	customValidation "github.com/allisson/kagimori/internal/validation"
)

// KekInfo exposes the non-secret state of the KEK layer.
// *cryptoService.RotatableCipher satisfies it.
type KekInfo interface {
	DefaultKeyID() uuid.UUID
}

// KeyHandler handles HTTP requests for DEK-backed operations.
type KeyHandler struct {
	encryptor encryptionUseCase.Encryptor
	kek       KekInfo
	logger    *slog.Logger
}

// NewKeyHandler creates a new key handler with required dependencies.
func NewKeyHandler(encryptor encryptionUseCase.Encryptor, kek KekInfo, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{
		encryptor: encryptor,
		kek:       kek,
		logger:    logger,
	}
}

// StatusHandler reports plugin health and the KEK used for new writes.
// GET /v1/kms/status - Returns 200 OK.
func (h *KeyHandler) StatusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dto.KMSStatusResponse{
		Version: "v2",
		Healthz: "ok",
		KeyID:   h.kek.DefaultKeyID().String(),
	})
}

// EncryptHandler encrypts plaintext under the latest DEK of the identifier, creating
// the first DEK on first use.
// POST /v1/keys/:id/encrypt - Returns 200 OK with ciphertext and version annotation.
func (h *KeyHandler) EncryptHandler(c *gin.Context) {
	id, ok := h.keyID(c)
	if !ok {
		return
	}

	var req dto.EncryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 plaintext: %w", err), h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	ciphertext, err := h.encryptor.Encrypt(c.Request.Context(), requestInfo(c, req.Caller), id, plaintext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapCiphertextToEncryptResponse(ciphertext))
}

// DecryptHandler decrypts a ciphertext with the DEK version named by the request.
// POST /v1/keys/:id/decrypt - Returns 200 OK with base64 plaintext.
func (h *KeyHandler) DecryptHandler(c *gin.Context) {
	id, ok := h.keyID(c)
	if !ok {
		return
	}

	var req dto.DecryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	version, err := req.ResolveVersion()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	sealed, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("invalid base64 ciphertext: %w", err), h.logger)
		return
	}

	plaintext, err := h.encryptor.Decrypt(c.Request.Context(), requestInfo(c, req.Caller), &encryptionDomain.Ciphertext{
		KeyID:      id,
		Version:    version,
		Ciphertext: sealed,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// SECURITY: Zero plaintext after mapping to response
	defer cryptoDomain.Zero(plaintext)

	c.JSON(http.StatusOK, dto.MapDecryptResponse(plaintext))
}

// RotateHandler creates the next DEK version and makes it the latest.
// POST /v1/keys/:id/rotate - Returns 200 OK with the new version, 409 on a lost race.
func (h *KeyHandler) RotateHandler(c *gin.Context) {
	id, ok := h.keyID(c)
	if !ok {
		return
	}

	var caller dto.Caller
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&caller); err != nil {
			httputil.HandleBadRequestGin(c, err, h.logger)
			return
		}
	}

	ref, err := h.encryptor.Rotate(c.Request.Context(), requestInfo(c, caller), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyRefToResponse(ref))
}

// GetHandler describes the latest DEK of an identifier without creating one.
// GET /v1/keys/:id - Returns 200 OK, or 404 when the identifier has no key.
func (h *KeyHandler) GetHandler(c *gin.Context) {
	id, ok := h.keyID(c)
	if !ok {
		return
	}

	status, err := h.encryptor.Status(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapKeyStatusToResponse(status))
}

// keyID extracts the identifier URL parameter, writing a 422 when it cannot name a key.
func (h *KeyHandler) keyID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := encryptionDomain.ValidateIdentifier(id); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return "", false
	}
	return id, true
}

// requestInfo builds the audit identity of a request. The event id follows the
// X-Request-Id header so audit events correlate with access logs.
func requestInfo(c *gin.Context, caller dto.Caller) encryptionDomain.RequestInfo {
	eventID := requestid.Get(c)
	if eventID == "" {
		eventID = uuid.Must(uuid.NewV7()).String()
	}

	service := caller.Service
	if service == "" {
		service = dto.DefaultService
	}

	return encryptionDomain.RequestInfo{
		EventID: eventID,
		Service: service,
		User:    caller.User,
		DataKey: caller.DataKey,
	}
}
