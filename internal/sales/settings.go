package sales

import (
	"context"
	"sync"
)

type SettingsStore interface {
	PaymentSettings(ctx context.Context) (*PaymentSettings, error)
	SavePaymentSettings(ctx context.Context, s PaymentSettings) error
}

// Settings holds the process-wide payment configuration. It is loaded once at
// startup and changes only through Save; readers take a copy via Current and
// pass it explicitly into payload generation and settlement.
type Settings struct {
	store SettingsStore

	mu      sync.RWMutex
	current PaymentSettings
}

func LoadSettings(ctx context.Context, store SettingsStore) (*Settings, error) {
	saved, err := store.PaymentSettings(ctx)
	if err != nil {
		return nil, err
	}
	cur := DefaultPaymentSettings()
	if saved != nil {
		cur = *saved
	}
	return &Settings{store: store, current: cur}, nil
}

func (s *Settings) Current() PaymentSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Settings) Save(ctx context.Context, next PaymentSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.SavePaymentSettings(ctx, next); err != nil {
		return err
	}
	s.current = next
	return nil
}
