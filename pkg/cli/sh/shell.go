// Package sh provides the ishell backed wmbuscli shell.
package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/wmbus.go/pkg/sink/store"
)

// Shell is an interactive shell over the frame tools and a frame log.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	StorePath   string

	Shell *ishell.Shell
	Store *store.Store
}

const (
	shellKey     = "$shell"
	closedPrompt = "wmbus > "
)

var (
	evalOnly   bool
	outputJSON bool
	storePath  string

	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&CountCmd,
		&RecentCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&storePath, "store", storePath, "SQLite frame log to open on start.")
}

// AddCmds registers commands. Call from init funcs.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		StorePath:   storePath,
		Shell:       ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets the Shell from an ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustHaveStore wraps a command which needs an opened frame log.
func MustHaveStore(fn func(c *ishell.Context, s *store.Store)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Store == nil {
			c.Err(fmt.Errorf("no frame log opened"))
			return
		}
		fn(c, s.Store)
	}
}

// Output prints v as JSON when requested, or text otherwise.
func Output(c *ishell.Context, v interface{}, text string) {
	if !ShellFrom(c).OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// OpenStore opens a frame log, closing the current one.
func (s *Shell) OpenStore(path string) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	s.CloseStore()
	s.Store, s.StorePath = st, path
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", path))
	return nil
}

// CloseStore closes the current frame log.
func (s *Shell) CloseStore() {
	if s.Store != nil {
		s.Store.Close()
		s.Store = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Run processes args as a command, or runs interactively.
func (s *Shell) Run(args ...string) {
	if s.StorePath != "" {
		if err := s.OpenStore(s.StorePath); err != nil {
			log.Fatalf("open %s failed: %v", s.StorePath, err)
		}
	}
	defer s.CloseStore()

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

// RecentArgs parses "[METER] [N]".
func RecentArgs(args []string) (meterID string, limit int, err error) {
	limit = 10
	for _, arg := range args {
		if n, e := strconv.Atoi(arg); e == nil && len(arg) < 8 {
			if n <= 0 {
				return "", 0, fmt.Errorf("invalid count %d", n)
			}
			limit = n
			continue
		}
		if meterID != "" {
			return "", 0, fmt.Errorf("unexpected argument %q", arg)
		}
		meterID = arg
	}
	return meterID, limit, nil
}

var (
	// OpenCmd opens a frame log.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "PATH",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("PATH required"))
				return
			}
			if err := ShellFrom(c).OpenStore(c.Args[0]); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the frame log.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Func: func(c *ishell.Context) {
			ShellFrom(c).CloseStore()
		},
	}

	// CountCmd prints the number of logged frames.
	CountCmd = ishell.Cmd{
		Name: "count",
		Func: MustHaveStore(func(c *ishell.Context, s *store.Store) {
			n, err := s.Count(context.Background())
			if err != nil {
				c.Err(err)
				return
			}
			Output(c, map[string]int64{"count": n}, strconv.FormatInt(n, 10))
		}),
	}

	// RecentCmd lists the latest logged frames.
	RecentCmd = ishell.Cmd{
		Name:    "recent",
		Aliases: []string{"r"},
		Help:    "[METER] [N]",
		Func: MustHaveStore(func(c *ishell.Context, s *store.Store) {
			meterID, limit, err := RecentArgs(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			records, err := s.Recent(context.Background(), meterID, limit)
			if err != nil {
				c.Err(err)
				return
			}
			if ShellFrom(c).OutputJSON {
				if records == nil {
					records = []store.FrameRecord{}
				}
				Output(c, records, "")
				return
			}
			if len(records) == 0 {
				c.Println("No frames")
				return
			}
			for _, r := range records {
				c.Println(FormatRecord(&r))
			}
		}),
	}
)

// FormatRecord formats a record on one line.
func FormatRecord(r *store.FrameRecord) string {
	meter := "-"
	if r.MeterID != "" {
		meter = r.Manufacturer + " " + r.MeterID
	}
	return fmt.Sprintf("%s %s%s %4ddBm %s %s",
		r.ReceivedAt.Local().Format("2006-01-02 15:04:05.000"),
		r.Mode, r.Block, r.RSSI, meter, r.Data)
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New().Run(flag.Args()...)
}
