package media

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/atsaudio/atsbt/pkg/accessory"
	"github.com/atsaudio/atsbt/pkg/cli/sh"
)

func do(c *ishell.Context, fn func() error) {
	if err := fn(); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

var (
	// AudioOpenCmd opens the audio stream to a paired device.
	AudioOpenCmd = ishell.Cmd{
		Name:    "audio.open",
		Aliases: []string{"open"},
		Help:    "ADDR",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("ADDR required"))
				return
			}
			addr, err := accessory.ParseAddress(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			do(c, func() error {
				return sh.ShellFrom(c).Session.Audio().Connect(addr)
			})
		}),
	}

	// AudioCloseCmd tears down the audio stream.
	AudioCloseCmd = ishell.Cmd{
		Name:    "audio.close",
		Aliases: []string{"close"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Audio().Disconnect)
		}),
	}

	// AudioStatusCmd prints the audio connection state.
	AudioStatusCmd = ishell.Cmd{
		Name:    "audio.status",
		Aliases: []string{"as"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			state, addr := s.Session.Audio().State()
			if s.OutputJSON {
				sh.PrintJSON(c, map[string]string{
					"state":   state.String(),
					"address": addr.String(),
				})
				return
			}
			if addr.IsZero() {
				c.Println(state.String())
				return
			}
			c.Printf("%s %s\n", state, addr)
		}),
	}

	// PlayCmd starts playback on the streaming device.
	PlayCmd = ishell.Cmd{
		Name:    "media.play",
		Aliases: []string{"play"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().Play)
		}),
	}

	// PauseCmd pauses playback.
	PauseCmd = ishell.Cmd{
		Name:    "media.pause",
		Aliases: []string{"pause"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().Pause)
		}),
	}

	// StopCmd stops playback.
	StopCmd = ishell.Cmd{
		Name:    "media.stop",
		Aliases: []string{"stop"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().Stop)
		}),
	}

	// NextCmd skips to the next track.
	NextCmd = ishell.Cmd{
		Name:    "media.next",
		Aliases: []string{"next"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().Next)
		}),
	}

	// PrevCmd skips to the previous track.
	PrevCmd = ishell.Cmd{
		Name:    "media.prev",
		Aliases: []string{"prev"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().Previous)
		}),
	}

	// VolUpCmd steps volume up.
	VolUpCmd = ishell.Cmd{
		Name:    "media.volup",
		Aliases: []string{"vol+"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().VolumeUp)
		}),
	}

	// VolDownCmd steps volume down.
	VolDownCmd = ishell.Cmd{
		Name:    "media.voldown",
		Aliases: []string{"vol-"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			do(c, sh.ShellFrom(c).Session.Media().VolumeDown)
		}),
	}

	// VolumeCmd sets the absolute volume level.
	VolumeCmd = ishell.Cmd{
		Name:    "media.vol",
		Aliases: []string{"vol"},
		Help:    "LEVEL(0-127)",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("LEVEL required"))
				return
			}
			level, err := strconv.Atoi(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid LEVEL: %v", err))
				return
			}
			do(c, func() error {
				return sh.ShellFrom(c).Session.Media().SetVolume(level)
			})
		}),
	}
)

func init() {
	sh.AddCmds(
		&AudioOpenCmd,
		&AudioCloseCmd,
		&AudioStatusCmd,
		&PlayCmd,
		&PauseCmd,
		&StopCmd,
		&NextCmd,
		&PrevCmd,
		&VolUpCmd,
		&VolDownCmd,
		&VolumeCmd,
	)
}
