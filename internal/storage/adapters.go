package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"draftpub/internal/settings"
)

const recordVersion = 1

// LogBlob persists the publish log under KeyPublishLog. It satisfies
// publog.Persistence.
type LogBlob struct {
	S Store
}

func (b LogBlob) Load(ctx context.Context) ([]byte, error) {
	v, err := b.S.Get(ctx, KeyPublishLog)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func (b LogBlob) Save(ctx context.Context, v []byte) error {
	return b.S.Put(ctx, KeyPublishLog, v)
}

type configRecord struct {
	V int `json:"v"`
	settings.Config
}

// SettingsStore persists the schedule config under KeyScheduleConfig. It
// satisfies settings.Store.
type SettingsStore struct {
	S Store
}

func (c SettingsStore) Get(ctx context.Context) (settings.Config, error) {
	b, err := c.S.Get(ctx, KeyScheduleConfig)
	if errors.Is(err, ErrNotFound) {
		return settings.Defaults(), nil
	}
	if err != nil {
		return settings.Config{}, err
	}
	var rec configRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return settings.Config{}, fmt.Errorf("decode schedule config: %w", err)
	}
	if rec.V > recordVersion {
		return settings.Config{}, fmt.Errorf("schedule config: unsupported version %d", rec.V)
	}
	return rec.Config, nil
}

func (c SettingsStore) Set(ctx context.Context, cfg settings.Config) error {
	b, err := json.Marshal(configRecord{V: recordVersion, Config: cfg})
	if err != nil {
		return err
	}
	return c.S.Put(ctx, KeyScheduleConfig, b)
}

// Saved reports whether a config was ever written.
func (c SettingsStore) Saved(ctx context.Context) (bool, error) {
	_, err := c.S.Get(ctx, KeyScheduleConfig)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

type stateRecord struct {
	V      int  `json:"v"`
	Active bool `json:"active"`
}

// StateStore persists whether the schedule is armed, so a restarted process
// can restore it.
type StateStore struct {
	S Store
}

// Load returns ok=false when nothing was saved yet.
func (s StateStore) Load(ctx context.Context) (active, ok bool, err error) {
	b, err := s.S.Get(ctx, KeyScheduleState)
	if errors.Is(err, ErrNotFound) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	var rec stateRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return false, false, fmt.Errorf("decode schedule state: %w", err)
	}
	return rec.Active, true, nil
}

func (s StateStore) Save(ctx context.Context, active bool) error {
	b, err := json.Marshal(stateRecord{V: recordVersion, Active: active})
	if err != nil {
		return err
	}
	return s.S.Put(ctx, KeyScheduleState, b)
}
