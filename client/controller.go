package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chepyr/session-tasks/shared/models"
)

// View renders the list state. An empty slice is the empty state.
type View interface {
	SetLoading(loading bool)
	Render(tasks []models.Task)
	SetUserID(userID string)
}

// Dialog shows messages and asks yes/no questions.
type Dialog interface {
	Alert(title, message string)
	Confirm(title, message string) bool
}

/*
Controller drives one client session against the tasks API.

It keeps no copy of the list: after every mutation, successful or not, the
whole list is fetched again and rendered from scratch.
*/
type Controller struct {
	api    *API
	view   View
	dialog Dialog
}

func NewController(cfg Config, view View, dialog Dialog) *Controller {
	return &Controller{api: NewAPI(cfg), view: view, dialog: dialog}
}

func (c *Controller) API() *API {
	return c.api
}

// Start shows the session identity and loads the list.
func (c *Controller) Start(ctx context.Context) error {
	c.view.SetUserID(c.api.UserID())
	return c.Refresh(ctx)
}

func (c *Controller) Refresh(ctx context.Context) error {
	c.view.SetLoading(true)
	defer c.view.SetLoading(false)

	tasks, err := c.api.List(ctx)
	if err != nil {
		c.dialog.Alert("Error", fmt.Sprintf("Failed to load tasks: %s. Make sure the server is running.", errorMessage(err)))
		return err
	}
	c.view.Render(tasks)
	return nil
}

// Add creates a task and reports whether it was stored, so the caller knows
// when to clear its input. Blank text never reaches the server.
func (c *Controller) Add(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		c.dialog.Alert("Input required", "Please enter a task before adding.")
		return false
	}

	_, err := c.api.Create(ctx, text)
	if err != nil {
		c.dialog.Alert("Error", fmt.Sprintf("Failed to add task: %s.", errorMessage(err)))
	}
	c.Refresh(ctx)
	return err == nil
}

// Toggle sets the completion flag. The list is re-fetched even on failure so
// the view matches the server again.
func (c *Controller) Toggle(ctx context.Context, id int64, completed bool) error {
	err := c.api.SetCompleted(ctx, id, completed)
	if err != nil {
		c.dialog.Alert("Error", fmt.Sprintf("Failed to update task: %s.", errorMessage(err)))
	}
	c.Refresh(ctx)
	return err
}

// Delete removes task after the user confirms. Declining sends nothing.
func (c *Controller) Delete(ctx context.Context, task models.Task) error {
	if !c.dialog.Confirm("Confirm delete", fmt.Sprintf("Are you sure you want to delete %q?", task.Text)) {
		return nil
	}

	err := c.api.Delete(ctx, task.ID)
	if err != nil {
		c.dialog.Alert("Error", fmt.Sprintf("Failed to delete task: %s.", errorMessage(err)))
	}
	c.Refresh(ctx)
	return err
}

func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
