package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rmax-ai/mapgraph/pkg/editor"
	"github.com/rmax-ai/mapgraph/pkg/geometry"
)

type commandKind int

const (
	cmdClick commandKind = iota
	cmdName
	cmdMode
	cmdUndo
	cmdSave
	cmdCancel
	cmdQuit
	cmdHelp
)

type command struct {
	kind   commandKind
	pos    geometry.Point
	button editor.Button
	mods   editor.Modifiers
	name   string
	mode   editor.Mode
}

const usage = "click X Y [left|right] [shift] | name NAME | mode place|car | undo | save | cancel | help | quit"

// parseCommand reads one line of the command grammar.
func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}

	switch verb := strings.ToLower(fields[0]); verb {
	case "click", "c":
		return parseClick(fields[1:])
	case "name", "n":
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return command{kind: cmdName, name: name}, nil
	case "mode", "m":
		if len(fields) != 2 {
			return command{}, fmt.Errorf("usage: mode place|car")
		}
		switch strings.ToLower(fields[1]) {
		case "place", "special", "p":
			return command{kind: cmdMode, mode: editor.ModeSpecialPlace}, nil
		case "car":
			return command{kind: cmdMode, mode: editor.ModeCar}, nil
		default:
			return command{}, fmt.Errorf("unknown mode %q", fields[1])
		}
	case "undo", "u":
		return command{kind: cmdUndo}, nil
	case "save", "s":
		return command{kind: cmdSave}, nil
	case "cancel":
		return command{kind: cmdCancel}, nil
	case "quit", "q", "exit":
		return command{kind: cmdQuit}, nil
	case "help", "?":
		return command{kind: cmdHelp}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", verb)
	}
}

func parseClick(args []string) (command, error) {
	if len(args) < 2 {
		return command{}, fmt.Errorf("usage: click X Y [left|right] [shift]")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return command{}, fmt.Errorf("invalid x %q", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return command{}, fmt.Errorf("invalid y %q", args[1])
	}
	pos := geometry.Pt(x, y)
	if !pos.IsFinite() {
		return command{}, fmt.Errorf("position %s %s is not a finite number", args[0], args[1])
	}

	c := command{kind: cmdClick, pos: pos, button: editor.ButtonPrimary}
	for _, arg := range args[2:] {
		switch strings.ToLower(arg) {
		case "left", "primary", "l":
			c.button = editor.ButtonPrimary
		case "right", "secondary", "r":
			c.button = editor.ButtonSecondary
		case "shift":
			c.mods |= editor.ModShift
		default:
			return command{}, fmt.Errorf("unknown click option %q", arg)
		}
	}
	return c, nil
}
