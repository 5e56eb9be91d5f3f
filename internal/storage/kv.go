package storage

import (
	"context"
	"encoding/json"
	"strings"

	"prayerd/internal/prayer"
)

// kv is the minimal byte-slot backend each driver implements; slotStore
// layers the typed Store API (and its JSON marshaling) on top so the
// drivers stay dumb.
type kv interface {
	put(ctx context.Context, key string, val []byte) error
	get(ctx context.Context, key string) ([]byte, bool, error)
	del(ctx context.Context, key string) error
	close() error
}

type slotStore struct {
	kv kv
}

func (s *slotStore) Close() error { return s.kv.close() }

func (s *slotStore) PutTable(ctx context.Context, t prayer.Table) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.kv.put(ctx, keyTable, b)
}

func (s *slotStore) GetTable(ctx context.Context) (prayer.Table, bool, error) {
	b, ok, err := s.kv.get(ctx, keyTable)
	if err != nil || !ok {
		return prayer.Table{}, false, err
	}
	var t prayer.Table
	if err := json.Unmarshal(b, &t); err != nil {
		// A corrupt cache slot behaves like an empty one.
		return prayer.Table{}, false, nil
	}
	return t, true, nil
}

func (s *slotStore) PutHandles(ctx context.Context, handles []string) error {
	if len(handles) == 0 {
		return s.kv.del(ctx, keyHandles)
	}
	b, err := json.Marshal(handles)
	if err != nil {
		return err
	}
	return s.kv.put(ctx, keyHandles, b)
}

func (s *slotStore) GetHandles(ctx context.Context) ([]string, error) {
	b, ok, err := s.kv.get(ctx, keyHandles)
	if err != nil || !ok {
		return nil, err
	}
	var hs []string
	if err := json.Unmarshal(b, &hs); err != nil {
		return nil, nil
	}
	return hs, nil
}

func (s *slotStore) PutMidnightHandle(ctx context.Context, handle string) error {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return s.kv.del(ctx, keyMidnight)
	}
	return s.kv.put(ctx, keyMidnight, []byte(handle))
}

func (s *slotStore) GetMidnightHandle(ctx context.Context) (string, error) {
	b, ok, err := s.kv.get(ctx, keyMidnight)
	if err != nil || !ok {
		return "", err
	}
	return string(b), nil
}

func (s *slotStore) PutLastScheduled(ctx context.Context, day string) error {
	day = strings.TrimSpace(day)
	if day == "" {
		return s.kv.del(ctx, keyLastScheduled)
	}
	return s.kv.put(ctx, keyLastScheduled, []byte(day))
}

func (s *slotStore) GetLastScheduled(ctx context.Context) (string, error) {
	b, ok, err := s.kv.get(ctx, keyLastScheduled)
	if err != nil || !ok {
		return "", err
	}
	return string(b), nil
}
