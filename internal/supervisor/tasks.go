package supervisor

import (
	"context"
	"time"

	"github.com/looxidlabs/link-band-core/internal/buffer"
	"github.com/looxidlabs/link-band-core/internal/bus"
	"github.com/looxidlabs/link-band-core/internal/decode"
	"github.com/looxidlabs/link-band-core/internal/dsp"
	"github.com/looxidlabs/link-band-core/internal/model"
	"github.com/looxidlabs/link-band-core/internal/transport"
)

// startTasks launches the decode+broadcast task and (for EEG/PPG/ACC)
// the DSP task for every sensor, each independently supervised with its
// own restart budget (spec.md §4.I). The decode and broadcast stages
// share one goroutine per sensor: Bus.BroadcastRaw's per-sensor ordering
// guarantee only requires that a single caller sequence its calls, which
// one goroutine per sensor does trivially, so a separate broadcast task
// would add a hand-off queue without changing any observable behavior.
func (s *Supervisor) startTasks(ctx context.Context) {
	eegCh, ppgCh, accCh, batCh := s.transport.Streams()

	s.runTask(ctx, model.SensorEEG, func(ctx context.Context) error {
		return s.decodeEegTask(ctx, eegCh)
	})
	s.runTask(ctx, model.SensorPPG, func(ctx context.Context) error {
		return s.decodePpgTask(ctx, ppgCh)
	})
	s.runTask(ctx, model.SensorACC, func(ctx context.Context) error {
		return s.decodeAccTask(ctx, accCh)
	})
	s.runTask(ctx, model.SensorBattery, func(ctx context.Context) error {
		return s.decodeBatteryTask(ctx, batCh)
	})

	s.runTask(ctx, model.SensorEEG, func(ctx context.Context) error {
		return s.processEegTask(ctx)
	})
	s.runTask(ctx, model.SensorPPG, func(ctx context.Context) error {
		return s.processPpgTask(ctx)
	})
	s.runTask(ctx, model.SensorACC, func(ctx context.Context) error {
		return s.processAccTask(ctx)
	})
}

// runTask wraps fn in the restart-budget supervisor and tracks it in the
// shutdown wait group.
func (s *Supervisor) runTask(ctx context.Context, sensor model.SensorKind, fn func(ctx context.Context) error) {
	budget := s.budgets[sensor]
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		supervise(ctx, string(sensor), budget, s.onTaskDegraded, fn)
	}()
}

func (s *Supervisor) onTaskDegraded(name string) {
	s.bus.BroadcastEvent(bus.EventError, map[string]string{"sensor": name, "reason": "restart_budget_exceeded"})
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// decodeEegTask drains raw EEG packets, decodes them, pushes the
// samples into the ring buffer, broadcasts them as a raw_data message
// and tees them to the active recording session, if any.
func (s *Supervisor) decodeEegTask(ctx context.Context, ch <-chan transport.Packet) error {
	d := &decode.EegDecoder{}
	ring := s.rings[model.SensorEEG]

	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-ch:
			if !ok {
				return nil
			}
			samples, err := d.Decode(pkt.Data)
			if err != nil {
				s.monitor.RecordDecodeError(model.SensorEEG)
				continue
			}

			boxed := make([]model.Sample, len(samples))
			for i, sm := range samples {
				boxed[i] = sm
			}
			ring.Push(boxed...)
			s.monitor.RecordOverrun(model.SensorEEG, ring.Overruns())
			s.monitor.RecordSamples(model.SensorEEG, len(samples))

			s.bus.BroadcastRaw(model.SensorEEG, len(samples), nowSeconds(), samples)
			if s.recorder.IsRecording() {
				for _, sm := range samples {
					s.recorder.WriteRaw(model.SensorEEG, sm)
				}
			}
		}
	}
}

func (s *Supervisor) decodePpgTask(ctx context.Context, ch <-chan transport.Packet) error {
	d := &decode.PpgDecoder{}
	ring := s.rings[model.SensorPPG]

	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-ch:
			if !ok {
				return nil
			}
			samples, err := d.Decode(pkt.Data)
			if err != nil {
				s.monitor.RecordDecodeError(model.SensorPPG)
				continue
			}

			boxed := make([]model.Sample, len(samples))
			for i, sm := range samples {
				boxed[i] = sm
			}
			ring.Push(boxed...)
			s.monitor.RecordOverrun(model.SensorPPG, ring.Overruns())
			s.monitor.RecordSamples(model.SensorPPG, len(samples))

			s.bus.BroadcastRaw(model.SensorPPG, len(samples), nowSeconds(), samples)
			if s.recorder.IsRecording() {
				for _, sm := range samples {
					s.recorder.WriteRaw(model.SensorPPG, sm)
				}
			}
		}
	}
}

func (s *Supervisor) decodeAccTask(ctx context.Context, ch <-chan transport.Packet) error {
	d := &decode.AccDecoder{}
	ring := s.rings[model.SensorACC]

	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-ch:
			if !ok {
				return nil
			}
			samples, err := d.Decode(pkt.Data)
			if err != nil {
				s.monitor.RecordDecodeError(model.SensorACC)
				continue
			}

			boxed := make([]model.Sample, len(samples))
			for i, sm := range samples {
				boxed[i] = sm
			}
			ring.Push(boxed...)
			s.monitor.RecordOverrun(model.SensorACC, ring.Overruns())
			s.monitor.RecordSamples(model.SensorACC, len(samples))

			s.bus.BroadcastRaw(model.SensorACC, len(samples), nowSeconds(), samples)
			if s.recorder.IsRecording() {
				for _, sm := range samples {
					s.recorder.WriteRaw(model.SensorACC, sm)
				}
			}
		}
	}
}

// decodeBatteryTask handles the single-sample-per-packet battery
// characteristic; its DSP stage is pass-through, so the decode task
// itself also emits the "processed" channel message (spec.md §4.E: BAT
// cadence "on arrival").
func (s *Supervisor) decodeBatteryTask(ctx context.Context, ch <-chan transport.Packet) error {
	d := &decode.BatteryDecoder{}
	ring := s.rings[model.SensorBattery]

	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt, ok := <-ch:
			if !ok {
				return nil
			}
			sample, err := d.Decode(pkt.Data, pkt.THost)
			if err != nil {
				s.monitor.RecordDecodeError(model.SensorBattery)
				continue
			}

			ring.Push(sample)
			s.monitor.RecordOverrun(model.SensorBattery, ring.Overruns())
			s.monitor.RecordSamples(model.SensorBattery, 1)
			s.monitor.RecordBatteryLevel(sample.LevelPercent)

			s.bus.BroadcastRaw(model.SensorBattery, 1, nowSeconds(), []model.BatterySample{sample})
			s.bus.BroadcastProcessed(model.SensorBattery, nowSeconds(), sample)
			if s.recorder.IsRecording() {
				s.recorder.WriteRaw(model.SensorBattery, sample)
			}
		}
	}
}

func toModelBandPower(b dsp.BandPowers) model.BandPower {
	return model.BandPower{Delta: b.Delta, Theta: b.Theta, Alpha: b.Alpha, Beta: b.Beta, Gamma: b.Gamma}
}

// underfilled reports whether got is below 90% of want, the window
// suppression threshold spec.md §8 invariant 3 requires.
func underfilled(got, want int) bool {
	return float64(got) < 0.9*float64(want)
}

func (s *Supervisor) processEegTask(ctx context.Context) error {
	const fs = 250.0
	windowN := buffer.Capacity(fs, s.cfg.EegWindowS)
	ch1 := dsp.NewEegChannel(fs)
	ch2 := dsp.NewEegChannel(fs)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			samples := s.rings[model.SensorEEG].Window(windowN)
			if underfilled(len(samples), windowN) {
				continue
			}

			ch1Raw := make([]float64, len(samples))
			ch2Raw := make([]float64, len(samples))
			var leadoff1, leadoff2 bool
			for i, sm := range samples {
				e := sm.(model.EegSample)
				ch1Raw[i] = e.Ch1uV
				ch2Raw[i] = e.Ch2uV
				leadoff1 = leadoff1 || e.LeadoffCh1
				leadoff2 = leadoff2 || e.LeadoffCh2
			}

			f1 := ch1.Process(ch1Raw)
			f2 := ch2.Process(ch2Raw)
			p1, freqs, sqi1 := dsp.WelchBandPowers(f1, fs)
			p2, _, sqi2 := dsp.WelchBandPowers(f2, fs)

			frame := model.EegFrame{
				Ch1Filtered: f1,
				Ch2Filtered: f2,
				Ch1Power:    toModelBandPower(p1),
				Ch2Power:    toModelBandPower(p2),
				Frequencies: freqs,
				SqiCh1:      sqi1,
				SqiCh2:      sqi2,
				LeadoffCh1:  leadoff1,
				LeadoffCh2:  leadoff2,
			}

			s.bus.BroadcastProcessed(model.SensorEEG, nowSeconds(), frame)
			s.monitor.RecordProcessed(model.SensorEEG)
			if s.recorder.IsRecording() {
				s.recorder.WriteProcessed(model.SensorEEG, frame)
			}
		}
	}
}

func (s *Supervisor) processPpgTask(ctx context.Context) error {
	const fs = 50.0
	windowN := buffer.Capacity(fs, s.cfg.PpgWindowS)
	ch := dsp.NewPpgChannel(fs)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			samples := s.rings[model.SensorPPG].Window(windowN)
			if underfilled(len(samples), windowN) {
				continue
			}

			red := make([]float64, len(samples))
			for i, sm := range samples {
				p := sm.(model.PpgSample)
				red[i] = p.Red
			}

			filtered := ch.Process(red)
			peaks := dsp.DetectPeaks(filtered, fs)
			hrv := dsp.ComputeHRV(peaks, fs)
			sqi := dsp.PeakProminenceSQI(filtered, peaks)

			frame := model.PpgFrame{
				Filtered:     filtered,
				HeartRateBpm: hrv.HeartRateBpm,
				HrvSdnnMs:    hrv.SdnnMs,
				HrvRmssdMs:   hrv.RmssdMs,
				Sqi:          sqi,
			}

			s.bus.BroadcastProcessed(model.SensorPPG, nowSeconds(), frame)
			s.monitor.RecordProcessed(model.SensorPPG)
			if s.recorder.IsRecording() {
				s.recorder.WriteProcessed(model.SensorPPG, frame)
			}
		}
	}
}

func (s *Supervisor) processAccTask(ctx context.Context) error {
	const fs = 30.0
	windowN := buffer.Capacity(fs, s.cfg.AccWindowS)
	ch := dsp.NewAccChannel(fs)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			samples := s.rings[model.SensorACC].Window(windowN)
			if underfilled(len(samples), windowN) {
				continue
			}

			x := make([]float64, len(samples))
			y := make([]float64, len(samples))
			z := make([]float64, len(samples))
			for i, sm := range samples {
				a := sm.(model.AccSample)
				x[i], y[i], z[i] = a.X, a.Y, a.Z
			}

			result := ch.Process(x, y, z)
			frame := model.AccFrame{
				FilteredX:     result.FilteredX,
				FilteredY:     result.FilteredY,
				FilteredZ:     result.FilteredZ,
				ActivityLabel: result.ActivityLabel,
				Magnitude:     result.Magnitude,
			}

			s.bus.BroadcastProcessed(model.SensorACC, nowSeconds(), frame)
			s.monitor.RecordProcessed(model.SensorACC)
			if s.recorder.IsRecording() {
				s.recorder.WriteProcessed(model.SensorACC, frame)
			}
		}
	}
}
