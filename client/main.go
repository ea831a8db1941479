package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"github.com/burntcarrot/coedit/awareness"
	"github.com/burntcarrot/coedit/binding"
	"github.com/burntcarrot/coedit/commons"
	"github.com/burntcarrot/coedit/config"
	"github.com/burntcarrot/coedit/crdt"
	"github.com/burntcarrot/coedit/editor"
	"github.com/burntcarrot/coedit/tui"
	"github.com/burntcarrot/coedit/undo"
)

var (
	// Local document.
	doc = crdt.New()

	// Editor window.
	e *editor.Editor

	// Presence state shared with the other participants.
	aw *awareness.Awareness

	// Undo history for local edits.
	um *undo.Manager

	// Binding between the document, the editor and the awareness state.
	b *binding.Binding

	// Logrus instance.
	logger = logrus.New()

	// Parsed flags and resolved config.
	flags Flags
	conf  config.Config

	// File name for loading and saving the document.
	fileName string
)

func main() {
	flags = parseFlags()
	conf = resolveConfig(flags)
	fileName = conf.File

	// Initialize the logger.
	logFile, debugLogFile, err := setupLogger(logger)
	if err != nil {
		fmt.Println("Failed to setup logger, exiting:", err)
		return
	}
	defer closeLogFiles(logFile, debugLogFile)

	// Prompt for a name and document when the config doesn't settle them.
	if conf.User == "" || flags.Login {
		user, docName, err := tui.Login(conf.User, conf.Doc)
		if err != nil {
			color.Red("Login cancelled: %s", err)
			return
		}
		conf.User = user
		conf.Doc = docName
	}

	// Pick up config edits made while the session runs. Only the presence
	// fields can change live; the rest applies on the next start.
	if stopWatch, err := config.Watch(flags.Config, applyConfigReload); err == nil {
		defer stopWatch()
	}

	conn, _, err := createConn(conf)
	if err != nil {
		color.Red("Connection error, exiting: %s", err)
		return
	}
	defer conn.Close()

	color.Green("Welcome %s! Joining %q on %s.", conf.User, conf.Doc, conf.Server)

	joinMsg := commons.Message{Username: conf.User, Text: "has joined the session.", Type: commons.JoinMessage}
	if err := send(conn, joinMsg); err != nil {
		color.Red("Failed to join, exiting: %s", err)
		return
	}

	err = UI(conn)
	if err != nil {
		if strings.HasPrefix(err.Error(), "coedit") {
			fmt.Println("Exiting session.")
			return
		}
		fmt.Println("Session ended unexpectedly:", err)
		os.Exit(1)
	}
}

// applyConfigReload pushes a reloaded config's presence fields into the
// running session.
func applyConfigReload(next config.Config) {
	if aw == nil {
		return
	}

	if next.User != conf.User || next.Color != conf.Color {
		conf.User = next.User
		conf.Color = next.Color
		aw.SetLocalState(&awareness.State{User: conf.User, Color: conf.Color})
		logger.Infof("config reloaded: user=%s color=%s", conf.User, conf.Color)
	}
}
