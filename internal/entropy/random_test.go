package entropy_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hegemon/internal/entropy"
)

func TestSeededIsDeterministic(t *testing.T) {
	a, b := entropy.NewSeeded(7), entropy.NewSeeded(7)
	for range 20 {
		x := a.Float64()
		assert.Equal(t, x, b.Float64())
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}
	assert.NotEqual(t, entropy.NewSeeded(8).Float64(), entropy.NewSeeded(7).Float64())
}

func TestClientDrainsPool(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Method string `json:"method"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generateDecimalFractions", req.Method)

		data := make([]float64, 20)
		for i := range data {
			data[i] = float64(i) / 100
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{"random": map[string]any{"data": data}},
		})
	}))
	defer srv.Close()

	c := entropy.NewClient("key", entropy.WithEndpoint(srv.URL))
	require.True(t, c.Enabled())

	assert.Equal(t, 0.0, c.Float64())
	assert.Equal(t, 0.01, c.Float64())
	assert.Equal(t, 18, c.Pooled())
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "quota"}})
	}))
	defer srv.Close()

	c := entropy.NewClient("key", entropy.WithEndpoint(srv.URL))
	v := c.Float64()
	assert.GreaterOrEqual(t, v, 0.0)
	assert.Less(t, v, 1.0)
	assert.Zero(t, c.Pooled())
}

func TestNewWithoutKeyIsSeeded(t *testing.T) {
	assert.Nil(t, entropy.NewClient(""))
	_, ok := entropy.New("", 1).(*entropy.Seeded)
	assert.True(t, ok)
}
