package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/atsaudio/atsbt/pkg/accessory"
	"github.com/atsaudio/atsbt/pkg/comm"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell   *ishell.Shell
	Config  *accessory.Config
	Session *accessory.Session
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&InfoCmd,
		&RawCmd,
		&ResetCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *accessory.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connected session.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Session == nil || s.Session.State() != accessory.Connected {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// PrintJSON prints v as a single JSON line.
func PrintJSON(c *ishell.Context, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return err
	}
	c.Println(string(out))
	return nil
}

// DoCommand runs a raw accessory command and prints the result.
func DoCommand(c *ishell.Context, cmd comm.Command) error {
	s := ShellFrom(c)
	res, err := s.Session.Do(cmd)
	if err != nil {
		c.Err(err)
		return err
	}
	return s.PrintResult(c, res)
}

// PrintResult prints a command result, as JSON if requested.
func (s *Shell) PrintResult(c *ishell.Context, res comm.Result) error {
	if s.OutputJSON {
		if res.Data == nil {
			res.Data = []string{}
		}
		return PrintJSON(c, res)
	}
	for _, line := range res.Data {
		c.Println(line)
	}
	if res.Payload != "" {
		c.Println(res.Payload)
		return nil
	}
	c.Println("OK")
	return nil
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

// Connect opens a session over the configured port.
func (s *Shell) Connect() error {
	sess := accessory.NewSession(s.Config)
	if err := sess.Connect(); err != nil {
		return err
	}
	if s.Session != nil {
		s.Session.Disconnect()
	}
	s.Session = sess
	prompt := s.Config.Port
	if addr, err := sess.LocalAddress(); err == nil {
		prompt = addr.String()
	}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", prompt))
	return nil
}

// Disconnect closes the current session.
func (s *Shell) Disconnect() {
	if s.Session != nil {
		s.Session.Disconnect()
		s.Session = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		if err := s.Connect(); err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ports, err := comm.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				if ports == nil {
					ports = []string{}
				}
				PrintJSON(c, ports)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// ConnectCmd connects the accessory.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				s.Config.Port = c.Args[0]
			}
			if err := s.Connect(); err != nil {
				c.Err(err)
				return
			}
		},
	}

	// DisconnectCmd disconnects the current session.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// InfoCmd prints accessory identity.
	InfoCmd = ishell.Cmd{
		Name:    "info",
		Aliases: []string{"i"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			info, err := s.Session.Info()
			if err != nil {
				c.Err(err)
				return
			}
			if s.OutputJSON {
				PrintJSON(c, info)
				return
			}
			c.Printf("Address:  %s\n", info.Address)
			c.Printf("Name:     %s\n", info.Name)
			c.Printf("Firmware: %s\n", info.Firmware)
			c.Printf("Status:   %s\n", info.Status)
		}),
	}

	// RawCmd sends a raw command line.
	RawCmd = ishell.Cmd{
		Name:    "raw",
		Aliases: []string{"send"},
		Help:    "COMMAND...",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			DoCommand(c, comm.Command{Text: strings.Join(c.Args, " ")})
		}),
	}

	// ResetCmd reboots the accessory and reconnects.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			if err := ShellFrom(c).Session.Reset(); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := accessory.ConfigFromFlags()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoConnect(true).Run(flag.Args()...)
}
