// Command linkbandd is the Link Band SDK core's standalone process
// entrypoint: a WebSocket stream server over the BLE acquisition
// pipeline (spec.md §6 exit codes, §4.I supervisor lifecycle).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/looxidlabs/link-band-core/internal/bus"
	"github.com/looxidlabs/link-band-core/internal/config"
	"github.com/looxidlabs/link-band-core/internal/control"
	"github.com/looxidlabs/link-band-core/internal/monitor"
	"github.com/looxidlabs/link-band-core/internal/recorder"
	"github.com/looxidlabs/link-band-core/internal/registry"
	"github.com/looxidlabs/link-band-core/internal/restadapter"
	"github.com/looxidlabs/link-band-core/internal/supervisor"
	"github.com/looxidlabs/link-band-core/internal/transport"
)

// Exit codes (spec.md §6).
const (
	exitClean               = 0
	exitConfigError          = 2
	exitBluetoothUnavailable = 3
	exitInterrupted          = 130
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitConfigError)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "scan":
		os.Exit(runScan(os.Args[2:]))
	case "version":
		fmt.Println("linkbandd dev")
		os.Exit(exitClean)
	default:
		usage()
		os.Exit(exitConfigError)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  linkbandd serve [flags]   run the streaming daemon")
	fmt.Fprintln(os.Stderr, "  linkbandd scan [flags]    scan for devices and exit")
	fmt.Fprintln(os.Stderr, "  linkbandd version         print the build version")
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	envFile := fs.String("env", "", "path to an optional .env file")
	withRest := fs.Bool("with-rest", false, "also mount the thin REST companion surface")
	fs.Parse(args)

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return exitConfigError
	}

	if err := ensurePortAvailable(cfg.WSHost, cfg.WSPort); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitConfigError
	}

	reg, err := registry.Open("registered_devices.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "registry error: %v\n", err)
		return exitConfigError
	}

	t := transport.New()
	b := bus.New(nil, cfg.SubscriberQueueDepth)
	rec := recorder.New(cfg.DataRoot)
	mon := monitor.New()

	sup := supervisor.New(cfg, reg, t, b, rec, mon)
	if err := sup.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "bluetooth unavailable: %v\n", err)
		return exitBluetoothUnavailable
	}

	adapter := control.New(sup)
	b.SetHandler(adapter)

	serveMux := http.NewServeMux()
	serveMux.HandleFunc("/", b.ServeHTTP)

	if *withRest {
		restRouter := mux.NewRouter()
		restadapter.Mount(restRouter, adapter)
		serveMux.Handle("/api/", restRouter)
	}

	addr := fmt.Sprintf("%s:%d", cfg.WSHost, cfg.WSPort)
	server := &http.Server{Addr: addr, Handler: serveMux}

	serveErr := make(chan error, 1)
	go func() {
		fmt.Printf("linkbandd: listening on ws://%s\n", addr)
		serveErr <- server.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "serve error: %v\n", err)
			return exitConfigError
		}
		return exitClean
	case <-sig:
		fmt.Println("linkbandd: shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		adapter.Close()
		sup.Shutdown(ctx)
		server.Shutdown(ctx)
		return exitInterrupted
	}
}

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	timeoutS := fs.Float64("timeout", 10, "scan timeout in seconds")
	fs.Parse(args)

	t := transport.New()
	if err := t.Enable(); err != nil {
		fmt.Fprintf(os.Stderr, "bluetooth unavailable: %v\n", err)
		return exitBluetoothUnavailable
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeoutS*float64(time.Second))+time.Second)
	defer cancel()

	devices, err := t.Scan(ctx, time.Duration(*timeoutS*float64(time.Second)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return exitConfigError
	}

	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.Address, d.Name)
	}
	return exitClean
}

