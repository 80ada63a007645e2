package recorder

import "github.com/looxidlabs/link-band-core/internal/model"

// Row types mirror internal/model's sample structs but carry parquet
// struct tags (segmentio/parquet-go infers schema from these via
// reflection, the same way the teacher's CaptureSample does).

type eegRow struct {
	TDevice    float64 `parquet:"t_device"`
	Ch1uV      float64 `parquet:"ch1_uv"`
	Ch2uV      float64 `parquet:"ch2_uv"`
	LeadoffCh1 bool    `parquet:"leadoff_ch1"`
	LeadoffCh2 bool    `parquet:"leadoff_ch2"`
}

func newEegRow(s model.EegSample) eegRow {
	return eegRow{TDevice: s.TDevice, Ch1uV: s.Ch1uV, Ch2uV: s.Ch2uV, LeadoffCh1: s.LeadoffCh1, LeadoffCh2: s.LeadoffCh2}
}

type ppgRow struct {
	TDevice float64 `parquet:"t_device"`
	Red     float64 `parquet:"red"`
	Ir      float64 `parquet:"ir"`
}

func newPpgRow(s model.PpgSample) ppgRow {
	return ppgRow{TDevice: s.TDevice, Red: s.Red, Ir: s.Ir}
}

type accRow struct {
	TDevice float64 `parquet:"t_device"`
	X       float64 `parquet:"x"`
	Y       float64 `parquet:"y"`
	Z       float64 `parquet:"z"`
}

func newAccRow(s model.AccSample) accRow {
	return accRow{TDevice: s.TDevice, X: s.X, Y: s.Y, Z: s.Z}
}

type batteryRow struct {
	TDevice      float64 `parquet:"t_device"`
	LevelPercent int     `parquet:"level_percent"`
}

func newBatteryRow(s model.BatterySample) batteryRow {
	return batteryRow{TDevice: s.TDevice, LevelPercent: s.LevelPercent}
}
