package bt

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/atsaudio/atsbt/pkg/accessory"
	"github.com/atsaudio/atsbt/pkg/cli/sh"
	fx "github.com/atsaudio/atsbt/pkg/framework"
)

func printDevices(c *ishell.Context, devices []accessory.Device) {
	s := sh.ShellFrom(c)
	if s.OutputJSON {
		if devices == nil {
			devices = []accessory.Device{}
		}
		sh.PrintJSON(c, devices)
		return
	}
	if len(devices) == 0 {
		c.Println("No devices found")
		return
	}
	for _, dev := range devices {
		line := dev.Address.String()
		if dev.Name != "" {
			line += fmt.Sprintf(" %q", dev.Name)
		}
		if dev.RSSI != 0 {
			line += fmt.Sprintf(" %d dBm", dev.RSSI)
		}
		if dev.Paired {
			line += " (paired)"
		}
		c.Println(line)
	}
}

func parseAddrArg(c *ishell.Context) (accessory.Address, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("ADDR required"))
		return accessory.Address{}, false
	}
	addr, err := accessory.ParseAddress(c.Args[0])
	if err != nil {
		c.Err(err)
		return accessory.Address{}, false
	}
	return addr, true
}

var (
	// ScanCmd runs a discovery scan and prints the sighted devices.
	ScanCmd = ishell.Cmd{
		Name:    "scan",
		Aliases: []string{"s"},
		Help:    "[SECONDS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			if len(c.Args) > 0 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("invalid SECONDS: %q", c.Args[0]))
					return
				}
				s.Config.ScanSeconds = secs
			}
			disc := s.Session.Discovery()
			if err := disc.StartDiscovery(); err != nil {
				c.Err(err)
				return
			}
			window := time.Duration(s.Config.ScanSeconds) * time.Second
			ctx, cancel := context.WithTimeout(context.Background(), window)
			defer cancel()
			poller := fx.NewPoller(time.Duration(s.Config.PollInterval), disc.Poll)
			if err := fx.NewRunnerWith(ctx).Go(poller).Wait(); err != nil {
				c.Err(err)
			}
			if err := disc.StopDiscovery(); err != nil {
				c.Err(err)
				return
			}
			printDevices(c, disc.Devices())
		}),
	}

	// DevicesCmd prints the device set from the last scan.
	DevicesCmd = ishell.Cmd{
		Name:    "devices",
		Aliases: []string{"devs"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			printDevices(c, sh.ShellFrom(c).Session.Discovery().Devices())
		}),
	}

	// PairedCmd prints the accessory's paired device registry.
	PairedCmd = ishell.Cmd{
		Name: "paired",
		Help: "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			devices, err := sh.ShellFrom(c).Session.Discovery().PairedDevices()
			if err != nil {
				c.Err(err)
				return
			}
			printDevices(c, devices)
		}),
	}

	// PairCmd pairs a device.
	PairCmd = ishell.Cmd{
		Name: "pair",
		Help: "ADDR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			addr, ok := parseAddrArg(c)
			if !ok {
				return
			}
			disc := sh.ShellFrom(c).Session.Discovery()
			if err := disc.Pair(addr); err != nil {
				if reason := disc.FailureReason(); reason != "" {
					c.Err(fmt.Errorf("pair %s failed: %s", addr, reason))
					return
				}
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// UnpairCmd removes a pairing.
	UnpairCmd = ishell.Cmd{
		Name: "unpair",
		Help: "ADDR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			addr, ok := parseAddrArg(c)
			if !ok {
				return
			}
			if err := sh.ShellFrom(c).Session.Discovery().Unpair(addr); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

func init() {
	sh.AddCmds(
		&ScanCmd,
		&DevicesCmd,
		&PairedCmd,
		&PairCmd,
		&UnpairCmd,
	)
}
