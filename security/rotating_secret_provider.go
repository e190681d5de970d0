package security

import (
	"context"
	"reflect"
	"time"

	"github.com/goliatone/go-shopify-auth/core"
)

// RotationEvent reports a decrypt that only succeeded with a retired key.
type RotationEvent struct {
	OccurredAt time.Time
	Provider   string
	Index      int
}

type RotationOption func(*RotatingSecretProvider)

// WithRetiredSecretProviders adds providers that are tried, in order, when
// the current provider cannot open a value.
func WithRetiredSecretProviders(providers ...core.SecretProvider) RotationOption {
	return func(p *RotatingSecretProvider) {
		for _, provider := range providers {
			if provider != nil {
				p.retired = append(p.retired, provider)
			}
		}
	}
}

// WithRotationHook is called for every value opened by a retired provider,
// so callers can re-store it under the current key.
func WithRotationHook(hook func(RotationEvent)) RotationOption {
	return func(p *RotatingSecretProvider) {
		p.hook = hook
	}
}

func WithRotationClock(now func() time.Time) RotationOption {
	return func(p *RotatingSecretProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// RotatingSecretProvider seals with the current provider and opens with the
// current provider first, then each retired one.
type RotatingSecretProvider struct {
	current core.SecretProvider
	retired []core.SecretProvider
	hook    func(RotationEvent)
	now     func() time.Time
}

func NewRotatingSecretProvider(current core.SecretProvider, opts ...RotationOption) (*RotatingSecretProvider, error) {
	if current == nil {
		return nil, core.NewConfigurationError("security: current secret provider is required", nil)
	}
	provider := &RotatingSecretProvider{
		current: current,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider, nil
}

func (p *RotatingSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if p == nil || p.current == nil {
		return nil, core.NewConfigurationError("security: secret provider is nil", nil)
	}
	return p.current.Encrypt(ctx, plaintext)
}

func (p *RotatingSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if p == nil || p.current == nil {
		return nil, core.NewConfigurationError("security: secret provider is nil", nil)
	}
	if len(ciphertext) == 0 {
		return nil, core.NewArgumentError("security: ciphertext is required", nil)
	}
	plaintext, err := p.current.Decrypt(ctx, ciphertext)
	if err == nil {
		return plaintext, nil
	}
	for index, retired := range p.retired {
		opened, retiredErr := retired.Decrypt(ctx, ciphertext)
		if retiredErr != nil {
			continue
		}
		if p.hook != nil {
			p.hook(RotationEvent{
				OccurredAt: p.now(),
				Provider:   describeSecretProvider(retired),
				Index:      index,
			})
		}
		return opened, nil
	}
	return nil, err
}

// RetiredCount is the number of fallback providers.
func (p *RotatingSecretProvider) RetiredCount() int {
	if p == nil {
		return 0
	}
	return len(p.retired)
}

func describeSecretProvider(provider core.SecretProvider) string {
	if keyed, ok := provider.(interface{ KeyID() string }); ok && keyed.KeyID() != "" {
		return keyed.KeyID()
	}
	return reflect.TypeOf(provider).String()
}

var _ core.SecretProvider = (*RotatingSecretProvider)(nil)
