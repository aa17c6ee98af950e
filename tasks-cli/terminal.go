package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chepyr/session-tasks/client"
	"github.com/chepyr/session-tasks/shared/models"
)

// terminal is both the View and the Dialog of a CLI session.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
	yes bool
	// last rendered list, used to name tasks in prompts
	shown []models.Task
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// SetLoading is a no-op; every call blocks until the list is back.
func (t *terminal) SetLoading(bool) {}

func (t *terminal) Render(tasks []models.Task) {
	t.shown = tasks
	if len(tasks) == 0 {
		fmt.Fprintln(t.out, "No tasks yet. Add one above!")
		return
	}
	for _, task := range tasks {
		mark := " "
		if task.Completed {
			mark = "x"
		}
		fmt.Fprintf(t.out, "[%s] %4d  %s\n", mark, task.ID, task.Text)
	}
}

func (t *terminal) SetUserID(userID string) {
	fmt.Fprintf(t.out, "User ID: %s\n", userID)
}

func (t *terminal) Alert(title, message string) {
	fmt.Fprintf(t.out, "%s: %s\n", title, message)
}

func (t *terminal) Confirm(title, message string) bool {
	if t.yes {
		return true
	}
	fmt.Fprintf(t.out, "%s: %s [y/N] ", title, message)
	line, err := t.readLine()
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (t *terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// lookup returns the shown task with id, or a placeholder when it is not on screen.
func (t *terminal) lookup(id int64) models.Task {
	for _, task := range t.shown {
		if task.ID == id {
			return task
		}
	}
	return models.Task{ID: id, Text: fmt.Sprintf("#%d", id)}
}

const shellHelp = `Commands:
  ls             list tasks
  add <text>     add a task
  done <id>      mark a task as completed
  undo <id>      mark a task as not completed
  rm <id>        delete a task
  quit           leave`

func runShell(ctx context.Context, ctrl *client.Controller, term *terminal) error {
	ctrl.Start(ctx)
	for {
		fmt.Fprint(term.out, "> ")
		line, err := term.readLine()
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(term.out)
			return nil
		}
		if err != nil {
			return err
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "":
		case "ls":
			ctrl.Refresh(ctx)
		case "add":
			ctrl.Add(ctx, arg)
		case "done", "undo":
			id, err := parseID(arg)
			if err != nil {
				term.Alert("Error", err.Error())
				continue
			}
			ctrl.Toggle(ctx, id, cmd == "done")
		case "rm":
			id, err := parseID(arg)
			if err != nil {
				term.Alert("Error", err.Error())
				continue
			}
			ctrl.Delete(ctx, term.lookup(id))
		case "help", "?":
			fmt.Fprintln(term.out, shellHelp)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(term.out, "unknown command %q, type help\n", cmd)
		}
	}
}
