// regctl: register protocol device simulator and driver
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"regctl/internal/config"
	"regctl/internal/device"
	"regctl/internal/diagnostics"
)

var (
	host     = flag.String("host", "", "bind address (default: config/.env/localhost)")
	port     = flag.Int("port", 0, "register protocol listen port (default: config/.env/8989)")
	diagAddr = flag.String("diag-addr", "127.0.0.1:8990", "diagnostics HTTP listen address, empty to disable")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadDeviceConfig()
	if err != nil {
		log.Fatalf("simulator: loading config: %v", err)
	}
	bindHost := *host
	if bindHost == "" {
		bindHost = cfg.Host
	}
	bindPort := *port
	if bindPort == 0 {
		bindPort = cfg.Port
	}

	mem := device.NewMemory(time.Now())

	srv := device.NewServer(mem, log.New(os.Stderr, "device: ", log.LstdFlags))
	addr := net.JoinHostPort(bindHost, fmt.Sprintf("%d", bindPort))
	if err := srv.Start(addr); err != nil {
		log.Fatalf("simulator: failed to listen on %s: %v", addr, err)
	}
	log.Printf("simulator: register protocol listening on %s", srv.Addr())

	if *diagAddr != "" {
		diag := diagnostics.New(mem)
		go func() {
			if err := diag.ListenAndServe(*diagAddr); err != nil {
				log.Printf("simulator: diagnostics server stopped: %v", err)
			}
		}()
		log.Printf("simulator: diagnostics listening on %s", *diagAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("simulator: shutting down...")
	srv.Stop()
}
