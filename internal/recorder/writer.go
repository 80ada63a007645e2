package recorder

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/segmentio/parquet-go"

	"github.com/looxidlabs/link-band-core/internal/model"
)

// sampleWriter appends one record at a time to a session file in a
// particular on-disk format, flushing on demand (spec.md §4.G).
type sampleWriter interface {
	WriteSample(v interface{}) error
	Flush() error
	Close() error
}

func newSampleWriter(f *os.File, format model.DataFormat, sensor model.SensorKind) (sampleWriter, error) {
	switch format {
	case model.FormatJSONLines:
		return newJSONLinesWriter(f), nil
	case model.FormatCSV:
		return newCSVWriter(f, sensor), nil
	case model.FormatParquet:
		return newParquetWriter(f, sensor)
	default:
		return nil, fmt.Errorf("recorder: unknown data format %q", format)
	}
}

// jsonLinesWriter emits one JSON object per line, buffered the way the
// teacher's ParquetWriteAdapter buffers raw bytes before a flush.
type jsonLinesWriter struct {
	f   *os.File
	buf *bufio.Writer
	enc *json.Encoder
}

func newJSONLinesWriter(f *os.File) *jsonLinesWriter {
	buf := bufio.NewWriter(f)
	return &jsonLinesWriter{f: f, buf: buf, enc: json.NewEncoder(buf)}
}

func (w *jsonLinesWriter) WriteSample(v interface{}) error { return w.enc.Encode(v) }
func (w *jsonLinesWriter) Flush() error                    { return w.buf.Flush() }
func (w *jsonLinesWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// csvWriter emits one fixed-column row per sample; the column set is
// chosen from the sensor kind since each sensor's sample shape differs.
type csvWriter struct {
	f      *os.File
	w      *csv.Writer
	sensor model.SensorKind
	header bool
}

func newCSVWriter(f *os.File, sensor model.SensorKind) *csvWriter {
	return &csvWriter{f: f, w: csv.NewWriter(f), sensor: sensor}
}

func (w *csvWriter) WriteSample(v interface{}) error {
	if !w.header {
		if err := w.w.Write(csvHeader(w.sensor)); err != nil {
			return err
		}
		w.header = true
	}
	row, err := csvRow(v)
	if err != nil {
		return err
	}
	return w.w.Write(row)
}

func (w *csvWriter) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

func (w *csvWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

func csvHeader(sensor model.SensorKind) []string {
	switch sensor {
	case model.SensorEEG:
		return []string{"t_device", "ch1_uv", "ch2_uv", "leadoff_ch1", "leadoff_ch2"}
	case model.SensorPPG:
		return []string{"t_device", "red", "ir"}
	case model.SensorACC:
		return []string{"t_device", "x", "y", "z"}
	case model.SensorBattery:
		return []string{"t_device", "level_percent"}
	default:
		return []string{"t_device"}
	}
}

func csvRow(v interface{}) ([]string, error) {
	switch s := v.(type) {
	case model.EegSample:
		return []string{f64(s.TDevice), f64(s.Ch1uV), f64(s.Ch2uV), strconv.FormatBool(s.LeadoffCh1), strconv.FormatBool(s.LeadoffCh2)}, nil
	case model.PpgSample:
		return []string{f64(s.TDevice), f64(s.Red), f64(s.Ir)}, nil
	case model.AccSample:
		return []string{f64(s.TDevice), f64(s.X), f64(s.Y), f64(s.Z)}, nil
	case model.BatterySample:
		return []string{f64(s.TDevice), strconv.Itoa(s.LevelPercent)}, nil
	default:
		return nil, fmt.Errorf("recorder: csv writer cannot format %T", v)
	}
}

func f64(x float64) string { return strconv.FormatFloat(x, 'f', -1, 64) }

// parquetWriter adapts a typed parquet.GenericWriter to sampleWriter,
// type-asserting each incoming model.Sample to its row type (spec.md
// §4.G; grounded on the teacher's NewParquetWriter/GenericWriter use).
type parquetWriter struct {
	f      *os.File
	close  func() error
	write  func(v interface{}) error
	flush  func() error
}

func newParquetWriter(f *os.File, sensor model.SensorKind) (sampleWriter, error) {
	switch sensor {
	case model.SensorEEG:
		w := parquet.NewGenericWriter[eegRow](f)
		return &parquetWriter{
			f:     f,
			write: func(v interface{}) error { _, err := w.Write([]eegRow{newEegRow(v.(model.EegSample))}); return err },
			flush: w.Flush,
			close: w.Close,
		}, nil
	case model.SensorPPG:
		w := parquet.NewGenericWriter[ppgRow](f)
		return &parquetWriter{
			f:     f,
			write: func(v interface{}) error { _, err := w.Write([]ppgRow{newPpgRow(v.(model.PpgSample))}); return err },
			flush: w.Flush,
			close: w.Close,
		}, nil
	case model.SensorACC:
		w := parquet.NewGenericWriter[accRow](f)
		return &parquetWriter{
			f:     f,
			write: func(v interface{}) error { _, err := w.Write([]accRow{newAccRow(v.(model.AccSample))}); return err },
			flush: w.Flush,
			close: w.Close,
		}, nil
	case model.SensorBattery:
		w := parquet.NewGenericWriter[batteryRow](f)
		return &parquetWriter{
			f:     f,
			write: func(v interface{}) error { _, err := w.Write([]batteryRow{newBatteryRow(v.(model.BatterySample))}); return err },
			flush: w.Flush,
			close: w.Close,
		}, nil
	default:
		return nil, fmt.Errorf("recorder: unsupported sensor %q for parquet", sensor)
	}
}

func (w *parquetWriter) WriteSample(v interface{}) error { return w.write(v) }
func (w *parquetWriter) Flush() error                    { return w.flush() }
func (w *parquetWriter) Close() error {
	if err := w.close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
