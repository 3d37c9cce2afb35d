// Command aio-echo serves a TCP echo listener on the aio runtime. Every
// accepted connection gets its own task that copies bytes back to the
// peer until it closes.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	aio "github.com/behrlich/go-aio"
	"github.com/behrlich/go-aio/internal/logging"
)

func main() {
	var (
		port    = flag.Uint("port", 7777, "Port to listen on (0 for ephemeral)")
		bufSize = flag.Int("buf", 4096, "Per-connection read buffer size")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if *port > 0xffff {
		log.Fatalf("Invalid port %d", *port)
	}

	// Set up logging
	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	rt, err := aio.New(nil)
	if err != nil {
		logger.Error("failed to create runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	// The scheduler loop owns its thread until the root task returns, so
	// shutdown is a plain signal-and-exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		os.Exit(0)
	}()

	_, err = aio.BlockOn(rt, func(t *aio.Task) (struct{}, error) {
		ln, err := aio.Listen(t, uint16(*port))
		if err != nil {
			return struct{}{}, err
		}
		defer ln.Close()
		logger.Info("echo server listening", "port", ln.Port())

		for {
			conn, err := ln.Accept(t)
			if err != nil {
				return struct{}{}, err
			}
			logger.Debug("accepted connection", "fd", conn.Fd())
			aio.Spawn(t, func(t *aio.Task) (struct{}, error) {
				defer conn.Close()
				buf := make([]byte, *bufSize)
				for {
					n, err := conn.Read(t, buf)
					if err != nil || n == 0 {
						return struct{}{}, err
					}
					if _, err := conn.WriteAll(t, buf[:n]); err != nil {
						return struct{}{}, err
					}
				}
			})
		}
	})
	if err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
