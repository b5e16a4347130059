package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAll(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	c.Register("store", func(ctx context.Context) error { return nil })
	c.Register("slack", func(ctx context.Context) error { return errors.New("auth failed") })

	results := c.RunAll(context.Background())
	assert.Equal(t, "ok", results["store"])
	assert.Equal(t, "auth failed", results["slack"])
	assert.False(t, c.IsReady(context.Background()))
}

func TestIsReady_AllPassing(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	c.Register("store", func(ctx context.Context) error { return nil })
	assert.True(t, c.IsReady(context.Background()))
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, 200, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestReadinessHandler(t *testing.T) {
	c := NewChecker(zerolog.New(os.Stderr))
	c.Register("store", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, rec.Code)

	c.Register("oracle", func(ctx context.Context) error { return errors.New("down") })
	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 503, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body["status"])
}
