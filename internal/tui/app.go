package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/vareditor/internal/config"
	"github.com/jask/vareditor/internal/database/repository"
	"github.com/jask/vareditor/internal/host"
	"github.com/jask/vareditor/internal/panel"
	"github.com/jask/vareditor/internal/variables"
)

// Conversations is the part of the host the UI drives directly.
type Conversations interface {
	Conversations(ctx context.Context) ([]repository.Chat, error)
	NewConversation(ctx context.Context, name string) (repository.Chat, error)
	OpenConversation(ctx context.Context, id string) error
	CloseConversation(ctx context.Context) error
	CurrentConversation() (repository.Chat, bool)
	Notifications() <-chan host.Notification
	PanelSettings() host.PanelSettings
}

// App is the bubbletea model for the variable panel.
type App struct {
	ctx   context.Context
	ctrl  *panel.Controller
	convs Conversations
	cfg   config.PanelConfig

	keys  keyMap
	help  help.Model
	input textinput.Model

	mode        inputMode
	targetScope variables.Scope
	targetKey   string // rename/edit target, or the name typed in the add flow

	focus  variables.Scope
	cursor int
	status string
	isErr  bool
}

type inputMode string

const (
	modeNone     inputMode = ""
	modeAddName  inputMode = "addName"
	modeAddValue inputMode = "addValue"
	modeRename   inputMode = "rename"
	modeEdit     inputMode = "edit"
	modeNewChat  inputMode = "newChat"
)

type (
	statusMsg  string
	errMsg     struct{ error }
	changedMsg struct{}
	noteMsg    host.Notification
)

func New(ctx context.Context, cfg config.PanelConfig, ctrl *panel.Controller, convs Conversations) *App {
	in := textinput.New()
	in.Prompt = "> "
	in.CharLimit = variables.MaxValueLength
	return &App{
		ctx:   ctx,
		ctrl:  ctrl,
		convs: convs,
		cfg:   cfg,
		keys:  newKeyMap(),
		help:  help.New(),
		input: in,
	}
}

// Init mounts the panel when the stored settings say it is shown and starts
// listening for controller and host signals.
func (a *App) Init() tea.Cmd {
	if a.convs.PanelSettings().IsShown {
		a.ctrl.Show()
	}
	return tea.Batch(a.waitForChange(), a.waitForNote())
}

func (a *App) waitForChange() tea.Cmd {
	ch := a.ctrl.Changes()
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) waitForNote() tea.Cmd {
	ch := a.convs.Notifications()
	return func() tea.Msg {
		select {
		case n := <-ch:
			return noteMsg(n)
		case <-a.ctx.Done():
			return nil
		}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.help.Width = m.Width
	case tea.KeyMsg:
		if a.mode != modeNone {
			return a.handleInputKey(m)
		}
		return a.handleKey(m)
	case changedMsg:
		a.clamp()
		return a, a.waitForChange()
	case noteMsg:
		a.status = m.Message
		a.isErr = m.Kind == host.Error
		return a, a.waitForNote()
	case statusMsg:
		a.status, a.isErr = string(m), false
	case errMsg:
		a.status, a.isErr = "error: "+m.Error(), true
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.quit):
		return a, tea.Quit
	case key.Matches(m, a.keys.toggle):
		return a, a.toggleCmd()
	case key.Matches(m, a.keys.toggleHelp):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil
	case key.Matches(m, a.keys.newChat):
		return a, a.prompt(modeNewChat, a.focus, "", "")
	case key.Matches(m, a.keys.nextChat):
		return a, a.cycleChatCmd(1)
	case key.Matches(m, a.keys.prevChat):
		return a, a.cycleChatCmd(-1)
	case key.Matches(m, a.keys.closeChat):
		return a, a.closeChatCmd()
	}
	if !a.ctrl.Mounted() {
		return a, nil
	}

	items := a.items(a.focus)
	onRow := a.cursor < len(items)
	switch {
	case key.Matches(m, a.keys.up):
		if a.cursor > 0 {
			a.cursor--
		}
	case key.Matches(m, a.keys.down):
		if a.cursor < len(items) {
			a.cursor++
		}
	case key.Matches(m, a.keys.section):
		a.focus = variables.Scopes[(int(a.focus)+1)%len(variables.Scopes)]
		a.clamp()
	case key.Matches(m, a.keys.add):
		return a, a.prompt(modeAddName, a.focus, "", "")
	case key.Matches(m, a.keys.edit):
		if !onRow {
			return a, a.prompt(modeAddName, a.focus, "", "")
		}
		it := items[a.cursor]
		return a, a.prompt(modeEdit, a.focus, it.Key, it.Value)
	case key.Matches(m, a.keys.rename):
		if onRow {
			it := items[a.cursor]
			return a, a.prompt(modeRename, a.focus, it.Key, it.Key)
		}
	case key.Matches(m, a.keys.remove):
		if onRow {
			return a, a.deleteCmd(a.focus, items[a.cursor].Key)
		}
	case key.Matches(m, a.keys.sort):
		scope := a.focus
		if err := a.ctrl.SetSort(scope, a.ctrl.Sort(scope).Next()); err != nil {
			return a, func() tea.Msg { return errMsg{err} }
		}
		a.status, a.isErr = fmt.Sprintf("%s sorted %s", scope, a.ctrl.Sort(scope).Label()), false
	}
	return a, nil
}

func (a *App) handleInputKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(m, a.keys.cancel):
		a.endInput()
		a.status, a.isErr = "cancelled", false
		return a, nil
	case key.Matches(m, a.keys.submit):
		text := a.input.Value()
		mode, scope, target := a.mode, a.targetScope, a.targetKey
		a.endInput()
		switch mode {
		case modeAddName:
			return a, a.prompt(modeAddValue, scope, text, "")
		case modeAddValue:
			return a, a.addCmd(scope, target, text)
		case modeRename:
			return a, a.renameCmd(scope, target, text)
		case modeEdit:
			return a, a.editCmd(scope, target, text)
		case modeNewChat:
			return a, a.newChatCmd(text)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(m)
	return a, cmd
}

// prompt opens the input line. target carries the key being acted on.
func (a *App) prompt(mode inputMode, scope variables.Scope, target, initial string) tea.Cmd {
	a.mode, a.targetScope, a.targetKey = mode, scope, target
	a.input.SetValue(initial)
	a.input.CursorEnd()
	return a.input.Focus()
}

func (a *App) endInput() {
	a.mode = modeNone
	a.input.Blur()
	a.input.SetValue("")
}

func (a *App) items(scope variables.Scope) []panel.DisplayItem {
	for _, s := range a.ctrl.View().Sections {
		if s.Scope == scope {
			return s.Items
		}
	}
	return nil
}

// clamp keeps the cursor on a row or the add row of the focused section.
func (a *App) clamp() {
	if n := len(a.items(a.focus)); a.cursor > n {
		a.cursor = n
	}
}

// mutationResult turns a controller error into a message. Validation and
// save failures already reached the user as notifications.
func mutationResult(err error, ok string) tea.Msg {
	var verr *variables.ValidationError
	var perr *panel.PersistenceError
	switch {
	case err == nil:
		if ok == "" {
			return nil
		}
		return statusMsg(ok)
	case errors.As(err, &verr), errors.As(err, &perr):
		return nil
	default:
		return errMsg{err}
	}
}

func (a *App) addCmd(scope variables.Scope, name, value string) tea.Cmd {
	return func() tea.Msg {
		return mutationResult(a.ctrl.AddVariable(a.ctx, scope, name, value), "")
	}
}

func (a *App) renameCmd(scope variables.Scope, oldKey, newKey string) tea.Cmd {
	return func() tea.Msg {
		return mutationResult(a.ctrl.RenameVariable(a.ctx, scope, oldKey, newKey), "renamed "+oldKey)
	}
}

func (a *App) editCmd(scope variables.Scope, name, value string) tea.Cmd {
	return func() tea.Msg {
		return mutationResult(a.ctrl.EditValue(a.ctx, scope, name, value), "updated "+name)
	}
}

func (a *App) deleteCmd(scope variables.Scope, name string) tea.Cmd {
	return func() tea.Msg {
		deleted, err := a.ctrl.DeleteVariable(a.ctx, scope, name)
		if err == nil && !deleted {
			return statusMsg("press d again to delete " + name)
		}
		return mutationResult(err, "")
	}
}

func (a *App) toggleCmd() tea.Cmd {
	return func() tea.Msg {
		state, err := a.ctrl.Toggle(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg("panel " + state)
	}
}

func (a *App) newChatCmd(name string) tea.Cmd {
	return func() tea.Msg {
		chat, err := a.convs.NewConversation(a.ctx, name)
		if err != nil {
			return errMsg{err}
		}
		if err := a.convs.OpenConversation(a.ctx, chat.ID); err != nil {
			return errMsg{err}
		}
		return statusMsg("opened " + chat.Name)
	}
}

func (a *App) cycleChatCmd(step int) tea.Cmd {
	return func() tea.Msg {
		chats, err := a.convs.Conversations(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		if len(chats) == 0 {
			return statusMsg("no conversations (press n to create one)")
		}
		idx := -1
		if cur, ok := a.convs.CurrentConversation(); ok {
			for i, c := range chats {
				if c.ID == cur.ID {
					idx = i
					break
				}
			}
		}
		next := 0
		if idx >= 0 {
			next = (idx + step + len(chats)) % len(chats)
		} else if step < 0 {
			next = len(chats) - 1
		}
		if err := a.convs.OpenConversation(a.ctx, chats[next].ID); err != nil {
			return errMsg{err}
		}
		return statusMsg("opened " + chats[next].Name)
	}
}

func (a *App) closeChatCmd() tea.Cmd {
	return func() tea.Msg {
		if _, ok := a.convs.CurrentConversation(); !ok {
			return statusMsg("no conversation open")
		}
		if err := a.convs.CloseConversation(a.ctx); err != nil {
			return errMsg{err}
		}
		return statusMsg("conversation closed")
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, app *App) error {
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
