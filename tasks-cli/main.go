package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/chepyr/session-tasks/client"
)

type Globals struct {
	Server  string `help:"Base URL of the tasks service." default:"http://localhost:5000" env:"TASKS_SERVER"`
	User    string `help:"User id to act as. A random one is generated when empty." short:"u" env:"TASKS_USER"`
	Session bool   `help:"Ask the server for a signed session and print its user id and token." xor:"identity"`
	Token   string `help:"Session token from an earlier --session run. Needs --user." env:"TASKS_TOKEN" xor:"identity"`
	Yes     bool   `help:"Delete without asking for confirmation." short:"y"`
}

type CLI struct {
	Globals

	Shell ShellCmd `cmd:"" default:"1" help:"Interactive session (default)."`
	Ls    LsCmd    `cmd:"" help:"List tasks."`
	Add   AddCmd   `cmd:"" help:"Add a task."`
	Done  DoneCmd  `cmd:"" help:"Mark a task as completed."`
	Undo  UndoCmd  `cmd:"" help:"Mark a task as not completed."`
	Rm    RmCmd    `cmd:"" help:"Delete a task."`
}

// session builds a controller for one run of the CLI.
func (g *Globals) session(ctx context.Context, term *terminal) (*client.Controller, error) {
	userID := strings.TrimSpace(g.User)
	token := strings.TrimSpace(g.Token)
	if token != "" && userID == "" {
		return nil, fmt.Errorf("--token needs the --user it was issued for")
	}
	if userID == "" && !g.Session {
		userID = client.NewUserID()
	}
	term.yes = g.Yes

	ctrl := client.NewController(client.Config{BaseURL: g.Server, UserID: userID, Token: token}, term, term)
	if g.Session {
		session, err := ctrl.API().NewSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("start session: %w", err)
		}
		fmt.Fprintf(term.out, "Session started. Reuse it with: --user %s --token %s\n", session.UserID, session.Token)
	}
	return ctrl, nil
}

type ShellCmd struct{}

func (c *ShellCmd) Run(g *Globals) error {
	ctx := context.Background()
	term := newTerminal(os.Stdin, os.Stdout)
	ctrl, err := g.session(ctx, term)
	if err != nil {
		return err
	}
	return runShell(ctx, ctrl, term)
}

type LsCmd struct{}

func (c *LsCmd) Run(g *Globals) error {
	ctx := context.Background()
	term := newTerminal(os.Stdin, os.Stdout)
	ctrl, err := g.session(ctx, term)
	if err != nil {
		return err
	}
	return ctrl.Start(ctx)
}

type AddCmd struct {
	Text []string `arg:"" help:"Task text."`
}

func (c *AddCmd) Run(g *Globals) error {
	ctx := context.Background()
	term := newTerminal(os.Stdin, os.Stdout)
	ctrl, err := g.session(ctx, term)
	if err != nil {
		return err
	}
	term.SetUserID(ctrl.API().UserID())
	if !ctrl.Add(ctx, strings.Join(c.Text, " ")) {
		return fmt.Errorf("task not added")
	}
	return nil
}

type DoneCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *DoneCmd) Run(g *Globals) error {
	return toggle(g, c.ID, true)
}

type UndoCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *UndoCmd) Run(g *Globals) error {
	return toggle(g, c.ID, false)
}

func toggle(g *Globals, id int64, completed bool) error {
	ctx := context.Background()
	term := newTerminal(os.Stdin, os.Stdout)
	ctrl, err := g.session(ctx, term)
	if err != nil {
		return err
	}
	return ctrl.Toggle(ctx, id, completed)
}

type RmCmd struct {
	ID int64 `arg:"" help:"Task id."`
}

func (c *RmCmd) Run(g *Globals) error {
	ctx := context.Background()
	term := newTerminal(os.Stdin, os.Stdout)
	ctrl, err := g.session(ctx, term)
	if err != nil {
		return err
	}
	tasks, err := ctrl.API().List(ctx)
	if err != nil {
		return err
	}
	term.shown = tasks
	return ctrl.Delete(ctx, term.lookup(c.ID))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("tasks-cli"),
		kong.Description("Terminal client for the session-scoped task tracker."),
		kong.UsageOnError(),
		kong.Bind(&cli.Globals),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
