package session

import (
	"context"
	"fmt"
	"sync"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
)

// ConfigCache holds the merchant payment-method configuration snapshot.
// Single-writer many-reader: Refresh replaces the snapshot wholesale, reads
// never observe a partial update.
type ConfigCache struct {
	mu      sync.RWMutex
	configs []checkout.PaymentMethodConfig
}

// Refresh fetches the configuration and replaces the snapshot.
func (c *ConfigCache) Refresh(ctx context.Context, client api.Client) error {
	configs, err := client.FetchConfiguration(ctx)
	if err != nil {
		return fmt.Errorf("fetch configuration: %w", err)
	}
	c.mu.Lock()
	c.configs = configs
	c.mu.Unlock()
	return nil
}

// Seed installs a snapshot directly, for embedders that already hold one.
func (c *ConfigCache) Seed(configs []checkout.PaymentMethodConfig) {
	c.mu.Lock()
	c.configs = append([]checkout.PaymentMethodConfig(nil), configs...)
	c.mu.Unlock()
}

// Lookup returns the configuration for a method type.
func (c *ConfigCache) Lookup(methodType string) (checkout.PaymentMethodConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, cfg := range c.configs {
		if cfg.Type == methodType {
			return cfg, true
		}
	}
	return checkout.PaymentMethodConfig{}, false
}

// All returns a copy of the current snapshot.
func (c *ConfigCache) All() []checkout.PaymentMethodConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]checkout.PaymentMethodConfig(nil), c.configs...)
}
