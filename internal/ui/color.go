// Package ui renders timers for the terminal
package ui

import (
	"github.com/pterm/pterm"
)

func Green(a any) string {
	return pterm.Green(a)
}

func Magenta(a any) string {
	return pterm.Magenta(a)
}

func Blue(a any) string {
	return pterm.Blue(a)
}
