package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := New(DefaultConfig())

	var got []time.Duration
	for i := 0; i < 7; i++ {
		got = append(got, b.Next())
	}

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, got)
}

func TestBackoff_ResetReturnsToBase(t *testing.T) {
	b := New(DefaultConfig())
	b.Next()
	b.Next()
	b.Next()
	require.Equal(t, 8*time.Second, b.Current())

	b.Reset()

	assert.Equal(t, time.Second, b.Current())
	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
}

func TestBackoff_AttemptsStopGrowingAtCap(t *testing.T) {
	b := New(DefaultConfig())
	for i := 0; i < 100; i++ {
		b.Next()
	}
	assert.Equal(t, 4, b.Attempts())
	assert.Equal(t, 10*time.Second, b.Current())
}

func TestDelay_CustomMultiplier(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 3}

	assert.Equal(t, 100*time.Millisecond, Delay(cfg, 0))
	assert.Equal(t, 300*time.Millisecond, Delay(cfg, 1))
	assert.Equal(t, 900*time.Millisecond, Delay(cfg, 2))
	assert.Equal(t, time.Second, Delay(cfg, 3))
	assert.Equal(t, 100*time.Millisecond, Delay(cfg, -2))
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "zero initial", cfg: Config{MaxDelay: time.Second, Multiplier: 2}, wantErr: true},
		{name: "max below initial", cfg: Config{InitialDelay: time.Second, MaxDelay: time.Millisecond, Multiplier: 2}, wantErr: true},
		{name: "shrinking multiplier", cfg: Config{InitialDelay: time.Second, MaxDelay: time.Second, Multiplier: 0.5}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
