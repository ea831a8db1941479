// Package tui prompts for the session details before the editor takes over
// the terminal.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Login prompts for a username and a document name, pre-filling the given
// defaults. It returns an error when the prompt is cancelled.
func Login(defaultUser, defaultDoc string) (string, string, error) {
	p := tea.NewProgram(initialModel(defaultUser, defaultDoc))
	final, err := p.StartReturningModel()
	if err != nil {
		return "", "", err
	}

	m, ok := final.(model)
	if !ok || m.Quitting {
		return "", "", errors.New("login cancelled")
	}

	user := m.inputs[0].Value()
	docName := m.inputs[1].Value()
	if user == "" {
		return "", "", errors.New("no username entered")
	}
	if docName == "" {
		docName = defaultDoc
	}

	return user, docName, nil
}

type (
	errMsg error
)

type model struct {
	inputs   [2]textinput.Model
	focus    int
	err      error
	Quitting bool
}

func initialModel(defaultUser, defaultDoc string) model {
	user := textinput.New()
	user.Placeholder = "Username"
	user.SetValue(defaultUser)
	user.Focus()
	user.CharLimit = 156
	user.Width = 20

	docName := textinput.New()
	docName.Placeholder = "Document"
	docName.SetValue(defaultDoc)
	docName.CharLimit = 156
	docName.Width = 20

	return model{
		inputs: [2]textinput.Model{user, docName},
		err:    nil,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.Quitting = true
			return m, tea.Quit
		case tea.KeyEnter, tea.KeyTab:
			// Enter on the last field submits; otherwise move on.
			if msg.Type == tea.KeyEnter && m.focus == len(m.inputs)-1 {
				return m, tea.Quit
			}
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			m.inputs[m.focus].Focus()
			return m, textinput.Blink
		}

	// We handle errors just like any other message
	case errMsg:
		m.err = msg
		return m, nil
	}

	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m model) View() string {
	if m.Quitting {
		return "\n  See you later!\n\n"
	}

	return fmt.Sprintf(
		"Enter a username and a document to join:\n\n%s\n%s\n\n%s",
		m.inputs[0].View(),
		m.inputs[1].View(),
		"(enter to continue, esc to quit)",
	) + "\n"
}
