package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openda-project/openda-go/pkg/opc"
	"github.com/openda-project/openda-go/pkg/remote"
)

func connected(t *testing.T, tags map[string]any, opts ...Option) *Source {
	t.Helper()
	s := New(tags, opts...)
	require.NoError(t, s.Connect("Simulation.OPCServer.1", "localhost"))
	return s
}

func TestOperationsRequireConnection(t *testing.T) {
	s := New(map[string]any{"T1": 1})

	err := s.AddGroup("g", 0)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.Validate("g", []string{"T1"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestGroupLifecycle(t *testing.T) {
	s := connected(t, map[string]any{"T1": 1})

	require.NoError(t, s.AddGroup("g", 0))
	assert.ErrorIs(t, s.AddGroup("g", 0), ErrDuplicateGroup)

	require.NoError(t, s.RemoveGroup("g"))
	assert.ErrorIs(t, s.RemoveGroup("g"), ErrUnknownGroup)
}

func TestValidateFlagsUnknownTags(t *testing.T) {
	s := connected(t, map[string]any{"T1": 1})

	codes, err := s.Validate("g", []string{"T1", "Nope"})
	require.NoError(t, err)
	assert.Equal(t, remote.CodeOK, codes[0])
	assert.Equal(t, remote.CodeUnknownItemID, codes[1])
}

func TestSyncReadRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := connected(t, map[string]any{"T1": 21.5}, WithClock(func() time.Time { return now }))
	require.NoError(t, s.AddGroup("g", 0))

	handles, codes, err := s.AddItems("g", []string{"T1"}, []uint32{0})
	require.NoError(t, err)
	require.Equal(t, remote.CodeOK, codes[0])

	batch, err := s.SyncRead("g", remote.SourceDevice, handles)
	require.NoError(t, err)
	assert.Equal(t, 21.5, batch.Values[0])
	assert.Equal(t, QualityGood, batch.Qualities[0])
	assert.Equal(t, now, batch.Timestamps[0])
}

func TestSyncWriteRespectsReadOnly(t *testing.T) {
	s := connected(t, map[string]any{"RW": 1, "RO": 2})
	s.SetReadOnly("RO")
	require.NoError(t, s.AddGroup("g", 0))

	handles, _, err := s.AddItems("g", []string{"RW", "RO"}, []uint32{0, 1})
	require.NoError(t, err)

	codes, err := s.SyncWrite("g", handles, []any{10, 20})
	require.NoError(t, err)
	assert.Equal(t, remote.CodeOK, codes[0])
	assert.Equal(t, remote.CodeBadRights, codes[1])

	assert.Equal(t, 10, s.values["RW"])
	assert.Equal(t, 2, s.values["RO"])
}

func TestRemovedItemReadsAsInvalid(t *testing.T) {
	s := connected(t, map[string]any{"T1": 1})
	require.NoError(t, s.AddGroup("g", 0))

	handles, _, err := s.AddItems("g", []string{"T1"}, []uint32{0})
	require.NoError(t, err)

	codes, err := s.RemoveItems("g", handles)
	require.NoError(t, err)
	require.Equal(t, remote.CodeOK, codes[0])

	batch, err := s.SyncRead("g", remote.SourceCache, handles)
	require.NoError(t, err)
	assert.Equal(t, remote.CodeInvalidItemID, batch.Errors[0])
}

func TestAsyncRefreshDeliversAfterLatency(t *testing.T) {
	s := connected(t, map[string]any{"T1": 7}, WithLatency(10*time.Millisecond))
	require.NoError(t, s.AddGroup("g", 0))

	_, _, err := s.AddItems("g", []string{"T1"}, []uint32{5})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.AsyncRefresh("g", remote.SourceDevice, 42))

	select {
	case cb := <-s.Callbacks():
		assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
		assert.Equal(t, uint16(42), cb.TransactionID)
		require.Len(t, cb.ClientHandles, 1)
		assert.Equal(t, uint32(5), cb.ClientHandles[0])
		assert.Equal(t, 7, cb.Values[0])
	case <-time.After(time.Second):
		t.Fatal("no callback within a second")
	}
}

// The simulator must be usable as the session's real backend, async
// path included.
func TestSessionOverSimulator(t *testing.T) {
	s := New(map[string]any{"Pump.Speed": 1450, "Pump.Running": true},
		WithLatency(5*time.Millisecond))

	c := opc.NewClient(s)
	require.NoError(t, c.Connect("Simulation.OPCServer.1", ""))
	defer c.Close()

	readings, err := c.Read(context.Background(), []string{"Pump.Speed", "Pump.Running"},
		opc.ReadOptions{Group: "pump"})
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 1450, readings[0].Value)
	assert.Equal(t, "Good", readings[0].Quality)

	results, err := c.Write(context.Background(),
		[]opc.TagValue{{Tag: "Pump.Speed", Value: 900}}, opc.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, opc.StatusSuccess, results[0].Status)

	r, err := c.ReadOne(context.Background(), "Pump.Speed", opc.ReadOptions{Sync: true})
	require.NoError(t, err)
	assert.Equal(t, 900, r.Value)
}
