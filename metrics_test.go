package indirectx

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Lifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := mustHost(t, HostConfig{Nodes: []NodeConfig{
		Singleton[*testDatabase](databaseFactory("main")),
		Singleton[*testService](func(ctx context.Context, r *Resolver) (any, error) {
			return nil, errTestFactory
		}),
	}}, WithMetrics(reg, "test"))
	m := h.Metrics()
	require.NotNil(t, m)

	mustResolve(t, h, nil, dbID).Release()
	mustResolve(t, h, nil, dbID).Release()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Constructions.WithLabelValues("singleton", "ok")))
	// root and database
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LiveInstances))

	_, err := h.Resolve(context.Background(), nil, IdentifierOf[*testService]())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Constructions.WithLabelValues("singleton", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveFailures.WithLabelValues("construction")))

	_, err = h.Resolve(context.Background(), nil, IdentifierOf[*testRepository]())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolveFailures.WithLabelValues("not_visible")))

	require.NoError(t, h.Close(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LiveInstances))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Disposals.WithLabelValues("ok")))
}

func TestMetrics_AlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	mustHost(t, HostConfig{}, WithMetrics(reg, "test"))

	_, err := NewHost(HostConfig{}, WithMetrics(reg, "test"))
	assert.Error(t, err)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.constructed(KindSingleton, nil)
		m.coalesced()
		m.instanceCreated()
		m.disposed(nil)
		m.resolveFailed(ErrNotVisible)
	})
}

func TestMetrics_FailureReason(t *testing.T) {
	assert.Equal(t, "not_visible", failureReason(notVisibleError(dbID, "")))
	assert.Equal(t, "ambiguous", failureReason(&IxError{Kind: ErrAmbiguous}))
	assert.Equal(t, "disposing", failureReason(&IxError{Kind: ErrDisposing}))
	assert.Equal(t, "cycle", failureReason(&IxError{Kind: ErrCycle}))
	assert.Equal(t, "construction", failureReason(&IxError{Kind: ErrConstruction, SourceError: notVisibleError(dbID, "")}))
	assert.Equal(t, "canceled", failureReason(context.Canceled))
	assert.Equal(t, "other", failureReason(errTestFactory))
}
