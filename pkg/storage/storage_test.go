package storage

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matpris/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		storageType string
		wantType    any
		wantErr     bool
	}{
		{name: "csv", storageType: "csv", wantType: &CSV{}},
		{name: "supabase", storageType: "supabase", wantType: &Supabase{}},
		{name: "unknown", storageType: "postgres", wantErr: true},
		{name: "empty", storageType: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.StorageConfig{
				Type: tt.storageType,
				CSV:  config.CSVConfig{OutputDir: t.TempDir(), FilenamePrefix: "products"},
			}
			s, err := New(cfg, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedType))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, s)
			assert.IsType(t, tt.wantType, s)
		})
	}
}

func TestRunTrackerImplementations(t *testing.T) {
	// only the Supabase backend tracks runs
	var csvBackend Storage = NewCSV(config.CSVConfig{OutputDir: t.TempDir()}, zerolog.Nop())
	_, ok := csvBackend.(RunTracker)
	assert.False(t, ok)

	var sb Storage = NewSupabase(config.SupabaseConfig{}, zerolog.Nop())
	_, ok = sb.(RunTracker)
	assert.True(t, ok)
}
