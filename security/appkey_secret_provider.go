package security

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/goliatone/go-shopify-auth/core"
)

const tokenEnvelopePrefix = "shopify.token.v1:"

type Option func(*AppKeySecretProvider)

// AppKeySecretProvider seals access tokens at rest with AES-GCM under a key
// derived from the app key material.
type AppKeySecretProvider struct {
	key   []byte
	keyID string
}

type sealedToken struct {
	KeyID      string `json:"kid"`
	Algorithm  string `json:"alg"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithKeyID(id string) Option {
	return func(provider *AppKeySecretProvider) {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			provider.keyID = trimmed
		}
	}
}

func NewAppKeySecretProvider(keyMaterial []byte, opts ...Option) (*AppKeySecretProvider, error) {
	key := bytes.TrimSpace(keyMaterial)
	if len(key) == 0 {
		return nil, core.NewConfigurationError("security: key material is required", nil)
	}
	provider := &AppKeySecretProvider{
		key:   normalizeKey(key),
		keyID: "app-key",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider, nil
}

func NewAppKeySecretProviderFromString(key string, opts ...Option) (*AppKeySecretProvider, error) {
	return NewAppKeySecretProvider([]byte(key), opts...)
}

func (p *AppKeySecretProvider) Encrypt(_ context.Context, plaintext []byte) ([]byte, error) {
	if p == nil {
		return nil, core.NewConfigurationError("security: secret provider is nil", nil)
	}
	if len(plaintext) == 0 {
		return nil, core.NewArgumentError("security: plaintext is required", nil)
	}
	gcm, err := p.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, core.NewInternalError(err, "security: nonce generation failed")
	}
	data, err := json.Marshal(sealedToken{
		KeyID:      p.keyID,
		Algorithm:  "aes-256-gcm",
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, plaintext, []byte(p.keyID))),
	})
	if err != nil {
		return nil, core.NewInternalError(err, "security: encode sealed token")
	}
	return append([]byte(tokenEnvelopePrefix), data...), nil
}

func (p *AppKeySecretProvider) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil {
		return nil, core.NewConfigurationError("security: secret provider is nil", nil)
	}
	payload, ok := bytes.CutPrefix(ciphertext, []byte(tokenEnvelopePrefix))
	if !ok {
		return nil, core.NewArgumentError("security: value is not a sealed token", nil)
	}
	var parsed sealedToken
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, core.NewInternalError(err, "security: decode sealed token")
	}
	if parsed.KeyID != p.keyID {
		return nil, core.NewConfigurationError("security: key id mismatch", map[string]any{
			"got":  parsed.KeyID,
			"want": p.keyID,
		})
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return nil, core.NewInternalError(err, "security: decode nonce")
	}
	sealed, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return nil, core.NewInternalError(err, "security: decode ciphertext")
	}
	gcm, err := p.aead()
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, []byte(p.keyID))
	if err != nil {
		return nil, core.NewInternalError(err, "security: decrypt sealed token")
	}
	return plaintext, nil
}

// IsSealed reports whether value was produced by Encrypt.
func IsSealed(value []byte) bool {
	return bytes.HasPrefix(value, []byte(tokenEnvelopePrefix))
}

func (p *AppKeySecretProvider) KeyID() string {
	if p == nil {
		return ""
	}
	return p.keyID
}

func (p *AppKeySecretProvider) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(p.key)
	if err != nil {
		return nil, core.NewInternalError(err, "security: create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, core.NewInternalError(err, "security: create gcm")
	}
	return gcm, nil
}

func normalizeKey(value []byte) []byte {
	if len(value) == 32 {
		return bytes.Clone(value)
	}
	sum := sha256.Sum256(value)
	return sum[:]
}

var _ core.SecretProvider = (*AppKeySecretProvider)(nil)
