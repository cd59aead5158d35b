// regctl: register protocol device simulator and driver
// Copyright (C) 2026  Guillermo Perry
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// driverctl is a one-shot command-line driver for manual testing and
// scripting against a running simulator; it is not part of the spec's
// driver surface (spec.md's Non-goals name a CLI as an out-of-scope
// collaborator — this exists only to exercise the driver package).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"regctl/internal/config"
	"regctl/internal/driver"
)

var (
	host    = flag.String("host", "", "device host (default: config/.env/localhost)")
	port    = flag.Int("port", 0, "device port (default: config/.env/8989)")
	verbose = flag.Bool("v", false, "log driver errors to stderr")
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: driverctl [-host H] [-port P] [-v] <command> [args]")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status")
	fmt.Fprintln(os.Stderr, "  get-led | get-fan | get-heater | get-temperature | get-humidity")
	fmt.Fprintln(os.Stderr, "  set-led <0-255> | set-fan <0-255> | set-heater <0-15>")
	fmt.Fprintln(os.Stderr, "  set-door <1-4> <open|closed>")
	fmt.Fprintln(os.Stderr, "  reset <temperature|humidity|led|fan|heater|doors>")
	os.Exit(2)
}

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
	}

	cfg, err := config.LoadDeviceConfig()
	if err != nil {
		log.Fatalf("driverctl: loading config: %v", err)
	}
	dialHost := *host
	if dialHost == "" {
		dialHost = cfg.Host
	}
	dialPort := *port
	if dialPort == 0 {
		dialPort = cfg.Port
	}

	var logCB driver.LogFunc
	if *verbose {
		logCB = func(msg string) { log.Println("driver:", msg) }
	}

	sess := driver.NewSession(logCB)
	if err := sess.Connect(dialHost, dialPort); err != nil {
		log.Fatalf("driverctl: connect: %v", err)
	}
	defer sess.Destroy()

	if err := run(sess, args); err != nil {
		log.Fatalf("driverctl: %v", err)
	}
}

func run(sess *driver.Session, args []string) error {
	switch args[0] {
	case "status":
		st, err := sess.GetStatus()
		if err != nil {
			return err
		}
		fmt.Printf("connected=%v sensors_powered=%v actuators_powered=%v has_errors=%v\n",
			st.Connected, st.SensorsPowered, st.ActuatorsPowered, st.HasErrors)
		return nil

	case "get-temperature":
		return printByte(sess.GetTemperature())
	case "get-humidity":
		return printByte(sess.GetHumidity())
	case "get-led":
		return printByte(sess.GetLED())
	case "get-fan":
		return printByte(sess.GetFan())
	case "get-heater":
		return printByte(sess.GetHeater())

	case "set-led":
		v, err := requireByteArg(args, 1)
		if err != nil {
			return err
		}
		return sess.SetLED(v)
	case "set-fan":
		v, err := requireByteArg(args, 1)
		if err != nil {
			return err
		}
		return sess.SetFan(v)
	case "set-heater":
		v, err := requireByteArg(args, 1)
		if err != nil {
			return err
		}
		return sess.SetHeater(v)

	case "set-door":
		if len(args) < 3 {
			usage()
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid door id %q: %w", args[1], err)
		}
		open, err := parseOpenClosed(args[2])
		if err != nil {
			return err
		}
		return sess.SetDoor(id, open)

	case "reset":
		if len(args) < 2 {
			usage()
		}
		c, err := parseComponent(args[1])
		if err != nil {
			return err
		}
		return sess.ResetComponent(c)

	default:
		usage()
		return nil
	}
}

func printByte(v byte, err error) error {
	if err != nil {
		return err
	}
	fmt.Printf("%d\n", v)
	return nil
}

func requireByteArg(args []string, i int) (byte, error) {
	if len(args) <= i {
		usage()
	}
	v, err := strconv.Atoi(args[i])
	if err != nil || v < 0 || v > 255 {
		return 0, fmt.Errorf("invalid byte value %q", args[i])
	}
	return byte(v), nil
}

func parseOpenClosed(s string) (bool, error) {
	switch s {
	case "open":
		return true, nil
	case "closed":
		return false, nil
	default:
		return false, fmt.Errorf("invalid door state %q, want open|closed", s)
	}
}

func parseComponent(s string) (driver.Component, error) {
	switch s {
	case "temperature":
		return driver.ComponentTemperature, nil
	case "humidity":
		return driver.ComponentHumidity, nil
	case "led":
		return driver.ComponentLED, nil
	case "fan":
		return driver.ComponentFan, nil
	case "heater":
		return driver.ComponentHeater, nil
	case "doors":
		return driver.ComponentDoors, nil
	default:
		return 0, fmt.Errorf("unknown component %q", s)
	}
}
