// Package control implements the Control Surface Adapter (spec.md
// §4.J): the verb table callable from both the WebSocket command
// handler and an external REST layer. Every verb is funneled through a
// single command actor goroutine so concurrent REST/WS callers observe
// one consistent state machine (spec.md §5, S6).
package control

import (
	"fmt"

	"github.com/looxidlabs/link-band-core/internal/errs"
	"github.com/looxidlabs/link-band-core/internal/supervisor"
)

// verb identifies which Supervisor method a queued request should call.
type verb int

const (
	verbScan verb = iota
	verbConnect
	verbDisconnect
	verbStatus
	verbStartStreaming
	verbStopStreaming
	verbStartRecording
	verbStopRecording
	verbHealthCheck
	verbExportSession
)

type request struct {
	verb    verb
	address string
	name    string
	timeout float64
	reply   chan response
}

type response struct {
	result interface{}
	err    error
}

// Adapter is the command actor: it owns the single goroutine that
// serializes every verb call against the Supervisor.
type Adapter struct {
	sup   *supervisor.Supervisor
	queue chan request
	done  chan struct{}
}

// New builds an Adapter over sup and starts its command actor goroutine.
// It also points the Supervisor's device-lost reconnect path back at
// this Adapter's Connect, so a background reconnect is serialized
// through the same queue as client-issued connect() calls instead of
// racing them (spec.md §5, S6).
func New(sup *supervisor.Supervisor) *Adapter {
	a := &Adapter{
		sup:   sup,
		queue: make(chan request, 32),
		done:  make(chan struct{}),
	}
	go a.run()
	sup.SetReconnectFunc(func(address string) error {
		_, err := a.Connect(address)
		return err
	})
	return a
}

// Close stops accepting new commands and waits for the actor loop to
// drain in-flight requests it had already dequeued.
func (a *Adapter) Close() {
	close(a.queue)
	<-a.done
}

func (a *Adapter) run() {
	defer close(a.done)
	for req := range a.queue {
		req.reply <- a.dispatch(req)
	}
}

func (a *Adapter) dispatch(req request) response {
	switch req.verb {
	case verbScan:
		devices, err := a.sup.Scan(req.timeout)
		return response{result: devices, err: err}
	case verbConnect:
		err := a.sup.Connect(req.address)
		return response{result: struct{}{}, err: err}
	case verbDisconnect:
		err := a.sup.Disconnect()
		return response{result: struct{}{}, err: err}
	case verbStatus:
		status, err := a.sup.Status()
		return response{result: status, err: err}
	case verbStartStreaming:
		already, err := a.sup.StartStreaming()
		return response{result: map[string]bool{"already_running": already}, err: err}
	case verbStopStreaming:
		already, err := a.sup.StopStreaming()
		return response{result: map[string]bool{"already_stopped": already}, err: err}
	case verbStartRecording:
		session, err := a.sup.StartRecording(req.name)
		return response{result: session, err: err}
	case verbStopRecording:
		session, err := a.sup.StopRecording()
		return response{result: session, err: err}
	case verbHealthCheck:
		snap, err := a.sup.HealthCheck()
		return response{result: snap, err: err}
	case verbExportSession:
		path, err := a.sup.ExportSession()
		return response{result: map[string]string{"path": path}, err: err}
	default:
		return response{err: fmt.Errorf("%w: unrecognized verb", errs.ErrUnknownCommand)}
	}
}

func (a *Adapter) call(req request) (result interface{}, err error) {
	req.reply = make(chan response, 1)

	defer func() {
		// a.queue is closed only once, from Close; sending on a closed
		// channel would panic a live caller racing shutdown, so recover
		// it into a StateError instead of propagating a crash.
		if r := recover(); r != nil {
			result, err = nil, errs.ErrNotRunning
		}
	}()

	a.queue <- req
	resp := <-req.reply
	return resp.result, resp.err
}

// Scan implements bus.CommandHandler.
func (a *Adapter) Scan(timeoutSeconds float64) (interface{}, error) {
	return a.call(request{verb: verbScan, timeout: timeoutSeconds})
}

// Connect implements bus.CommandHandler.
func (a *Adapter) Connect(address string) (interface{}, error) {
	return a.call(request{verb: verbConnect, address: address})
}

// Disconnect implements bus.CommandHandler.
func (a *Adapter) Disconnect() (interface{}, error) {
	return a.call(request{verb: verbDisconnect})
}

// Status implements bus.CommandHandler.
func (a *Adapter) Status() (interface{}, error) {
	return a.call(request{verb: verbStatus})
}

// StartStreaming implements bus.CommandHandler.
func (a *Adapter) StartStreaming() (interface{}, error) {
	return a.call(request{verb: verbStartStreaming})
}

// StopStreaming implements bus.CommandHandler.
func (a *Adapter) StopStreaming() (interface{}, error) {
	return a.call(request{verb: verbStopStreaming})
}

// StartRecording implements bus.CommandHandler.
func (a *Adapter) StartRecording(name string) (interface{}, error) {
	return a.call(request{verb: verbStartRecording, name: name})
}

// StopRecording implements bus.CommandHandler.
func (a *Adapter) StopRecording() (interface{}, error) {
	return a.call(request{verb: verbStopRecording})
}

// HealthCheck implements bus.CommandHandler.
func (a *Adapter) HealthCheck() (interface{}, error) {
	return a.call(request{verb: verbHealthCheck})
}

// ExportSession zips the most recently finished recording session for
// an external REST caller to offer as a download. Not part of
// bus.CommandHandler: the WebSocket protocol has no use for a file-path
// response, so this is reachable only through the REST companion.
func (a *Adapter) ExportSession() (interface{}, error) {
	return a.call(request{verb: verbExportSession})
}
