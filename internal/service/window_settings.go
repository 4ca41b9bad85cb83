package service

import (
	"context"
	"fmt"
	"strconv"

	"pagebuilder/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Window Size Persistence
// ─────────────────────────────────────────────────────────────
//
// The desktop window size is kept in app_settings next to the pages when
// the backend is SQL. Other backends fall back to the defaults.

// WindowSize holds the saved window dimensions.
type WindowSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// WindowSettingsService persists window size between sessions.
type WindowSettingsService struct {
	db *storage.DB
}

// NewWindowSettingsService accepts a nil db.
func NewWindowSettingsService(db *storage.DB) *WindowSettingsService {
	return &WindowSettingsService{db: db}
}

const (
	settingWindowWidth  = "window_width"
	settingWindowHeight = "window_height"
	defaultWindowWidth  = 1440
	defaultWindowHeight = 900
	minWindowWidth      = 800
	minWindowHeight     = 600
)

// LoadWindowSize returns the saved dimensions, or the defaults when none
// are saved or they are too small.
func (s *WindowSettingsService) LoadWindowSize(ctx context.Context) WindowSize {
	size := WindowSize{Width: defaultWindowWidth, Height: defaultWindowHeight}
	if s.db == nil {
		return size
	}
	if w := s.intSetting(ctx, settingWindowWidth); w >= minWindowWidth {
		size.Width = w
	}
	if h := s.intSetting(ctx, settingWindowHeight); h >= minWindowHeight {
		size.Height = h
	}
	return size
}

func (s *WindowSettingsService) intSetting(ctx context.Context, name string) int {
	v, ok, err := s.db.Setting(ctx, name)
	if err != nil || !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

// SaveWindowSize persists the current window dimensions.
func (s *WindowSettingsService) SaveWindowSize(ctx context.Context, width, height int) error {
	if s.db == nil {
		return fmt.Errorf("window settings: no db")
	}
	if err := s.db.SetSetting(ctx, settingWindowWidth, strconv.Itoa(width)); err != nil {
		return err
	}
	return s.db.SetSetting(ctx, settingWindowHeight, strconv.Itoa(height))
}
