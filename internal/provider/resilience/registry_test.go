package resilience_test

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/provider/resilience"
)

func TestRegistry(t *testing.T) {
	registry := resilience.NewRegistry()

	for _, name := range []string{"ors-matrix", "ors-directions"} {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		client := resilience.NewClient(cfg)
		assert.Equal(t, name, client.Name())
	}

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "ors-directions", all[0].Name)
	assert.True(t, all[0].IsHealthy())
	assert.Equal(t, gobreaker.StateClosed, all[1].CircuitState)

	registry.RecordSuccess("ors-matrix")
	registry.RecordFailure("ors-matrix", errors.New("boom"))
	registry.RecordFailure("unknown", errors.New("ignored"))

	h := registry.Health("ors-matrix")
	require.NotNil(t, h)
	assert.NotNil(t, h.LastSuccessAt)
	assert.NotNil(t, h.LastFailureAt)
	assert.Equal(t, "boom", h.LastError)
	assert.Nil(t, registry.Health("unknown"))
}
