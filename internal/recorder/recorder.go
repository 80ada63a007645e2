// Package recorder implements session recording to disk: one directory
// per session, atomic meta.json persistence and per-sensor/channel data
// files in the session's chosen format (spec.md §4.G).
package recorder

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/model"
)

var logger = log.New(os.Stderr, "[recorder] ", log.LstdFlags)

const flushEveryRecords = 100
const flushEveryInterval = 500 * time.Millisecond

type streamKey struct {
	sensor  model.SensorKind
	channel model.ChannelKind
}

type stream struct {
	writer      sampleWriter
	file        *os.File
	suffix      int
	sinceFlush  int
	lastFlush   time.Time
	recordCount int
}

// Recorder owns the single active recording session, if any.
type Recorder struct {
	dataRoot string

	mu       sync.Mutex
	session  *model.Session
	dir      string
	streams  map[streamKey]*stream
}

// New builds a Recorder rooted at dataRoot/sessions.
func New(dataRoot string) *Recorder {
	return &Recorder{dataRoot: dataRoot, streams: make(map[streamKey]*stream)}
}

// IsRecording reports whether a session is currently open.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Start begins a new session named name (may be empty), creating its
// directory and writing the initial meta.json.
func (r *Recorder) Start(name string, format model.DataFormat) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return nil, errs.ErrAlreadyRecording
	}

	id := uuid.NewString()
	dir := filepath.Join(r.dataRoot, "sessions", id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDirectoryCreateFailed, err)
	}

	session := &model.Session{
		ID:            id,
		SessionName:   name,
		StartedAt:     time.Now(),
		DirectoryPath: dir,
		DataFormat:    format,
		Stats:         model.SessionStats{TypeCount: make(map[string]int)},
	}

	if err := r.persistMeta(dir, session); err != nil {
		return nil, err
	}

	r.session = session
	r.dir = dir
	r.streams = make(map[streamKey]*stream)
	return session, nil
}

// WriteRaw appends one raw decoded sample to its sensor's file.
func (r *Recorder) WriteRaw(sensor model.SensorKind, sample model.Sample) error {
	return r.write(sensor, model.ChannelRaw, sample)
}

// WriteProcessed appends one processed-channel frame.
func (r *Recorder) WriteProcessed(sensor model.SensorKind, frame interface{}) error {
	return r.write(sensor, model.ChannelProcessed, frame)
}

func (r *Recorder) write(sensor model.SensorKind, channel model.ChannelKind, v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return errs.ErrNotRecording
	}

	key := streamKey{sensor: sensor, channel: channel}
	st, ok := r.streams[key]
	if !ok {
		var err error
		st, err = r.openStream(key, 0)
		if err != nil {
			return err
		}
		r.streams[key] = st
	}

	if err := st.writer.WriteSample(v); err != nil {
		// This stream is broken; abandon it so later writes don't keep
		// retrying a file that will only keep failing. Other sensors'
		// streams are untouched and keep recording (spec.md §4.G).
		st.writer.Close()
		delete(r.streams, key)
		r.session.Errors = append(r.session.Errors, err.Error())
		return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	st.recordCount++
	st.sinceFlush++

	if st.sinceFlush >= flushEveryRecords || time.Since(st.lastFlush) >= flushEveryInterval {
		if err := st.writer.Flush(); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
		}
		st.sinceFlush = 0
		st.lastFlush = time.Now()
	}
	return nil
}

func (r *Recorder) openStream(key streamKey, suffix int) (*stream, error) {
	name := fmt.Sprintf("%s_%s", key.sensor, key.channel)
	if suffix > 0 {
		name = fmt.Sprintf("%s_%d", name, suffix)
	}
	path := filepath.Join(r.dir, name+extensionFor(r.session.DataFormat))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}

	w, err := newSampleWriter(f, r.session.DataFormat, key.sensor)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &stream{writer: w, file: f, suffix: suffix, lastFlush: time.Now()}, nil
}

func extensionFor(format model.DataFormat) string {
	switch format {
	case model.FormatCSV:
		return ".csv"
	case model.FormatParquet:
		return ".parquet"
	default:
		return ".jsonl"
	}
}

// NoteReconnect records a device-lost/reconnect event mid-session and
// re-suffixes every open stream's file so subsequent writes land in a
// fresh file (_2, _3, ...), per spec.md §4.K reconnect-aware suffixing.
func (r *Recorder) NoteReconnect(atSeconds float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return errs.ErrNotRecording
	}

	r.session.Reconnects = append(r.session.Reconnects, model.Reconnect{At: atSeconds})
	suffix := len(r.session.Reconnects) + 1

	for key, st := range r.streams {
		if err := st.writer.Close(); err != nil {
			logger.Printf("close stream on reconnect: %v", err)
		}
		next, err := r.openStream(key, suffix)
		if err != nil {
			return err
		}
		r.streams[key] = next
	}

	idx := len(r.session.Reconnects) - 1
	r.session.Reconnects[idx].FileSuffix = suffix
	return r.persistMeta(r.dir, r.session)
}

// ResolveReconnect marks the most recent reconnect as resumed.
func (r *Recorder) ResolveReconnect(resumedAtSeconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil || len(r.session.Reconnects) == 0 {
		return
	}
	r.session.Reconnects[len(r.session.Reconnects)-1].ResumedAt = resumedAtSeconds
}

// Stop closes every open stream, finalizes the session stats and writes
// the final meta.json.
func (r *Recorder) Stop() (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, errs.ErrNotRecording
	}

	for key, st := range r.streams {
		if err := st.writer.Close(); err != nil {
			logger.Printf("close stream %s/%s: %v", key.sensor, key.channel, err)
			r.session.Errors = append(r.session.Errors, err.Error())
		}
		info, statErr := os.Stat(st.file.Name())
		size := int64(0)
		if statErr == nil {
			size = info.Size()
		}
		r.session.Files = append(r.session.Files, model.SessionFile{
			Path:    st.file.Name(),
			Sensor:  key.sensor,
			Channel: key.channel,
			Records: st.recordCount,
			Bytes:   size,
		})
		r.session.Stats.TypeCount[string(key.sensor)]++
	}
	r.session.Stats.TotalFiles = len(r.session.Files)

	now := time.Now()
	r.session.EndedAt = &now

	if err := r.persistMeta(r.dir, r.session); err != nil {
		return nil, err
	}

	finished := r.session
	r.session = nil
	r.streams = make(map[streamKey]*stream)
	return finished, nil
}

// persistMeta writes meta.json atomically via temp-file-then-rename,
// matching the registry's durability pattern.
func (r *Recorder) persistMeta(dir string, session *model.Session) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal meta.json: %v", errs.ErrWriteFailed, err)
	}

	tmp, err := os.CreateTemp(dir, "meta-*.json.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(dir, "meta.json")); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: %v", errs.ErrWriteFailed, err)
	}
	return nil
}
