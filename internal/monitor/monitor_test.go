package monitor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/looxidlabs/link-band-core/internal/model"
)

func TestSnapshotStartsWithNoDecodeErrors(t *testing.T) {
	m := New()
	snap := m.Snapshot()
	require.Len(t, snap.Sensors, 4)
	for _, s := range snap.Sensors {
		require.Equal(t, uint64(0), s.DecodeErrors)
	}
}

func TestRecordSamplesAdvancesRate(t *testing.T) {
	m := New()
	m.RecordSamples(model.SensorEEG, 250)
	snap := m.Snapshot()
	require.Greater(t, snap.Sensors[model.SensorEEG].SamplesPerSecond1s, 0.0)
}

func TestDecodeErrorsLowerHealthScore(t *testing.T) {
	m := New()
	base := m.Snapshot().Sensors[model.SensorEEG].HealthScore

	for i := 0; i < 10; i++ {
		m.RecordDecodeError(model.SensorEEG)
	}
	after := m.Snapshot().Sensors[model.SensorEEG].HealthScore
	require.Less(t, after, base)
}

func TestOverallHealthIsMinimumOfSensors(t *testing.T) {
	m := New()
	for i := 0; i < 50; i++ {
		m.RecordProcessorError(model.SensorPPG)
	}
	snap := m.Snapshot()
	require.Equal(t, snap.Sensors[model.SensorPPG].HealthScore, snap.Overall)
}

func TestBatteryLevelRecorded(t *testing.T) {
	m := New()
	m.RecordBatteryLevel(87)
	snap := m.Snapshot()
	require.NotNil(t, snap.Sensors[model.SensorBattery].BatteryLevel)
	require.Equal(t, 87, *snap.Sensors[model.SensorBattery].BatteryLevel)
}
