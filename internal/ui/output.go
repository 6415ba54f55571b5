// Package ui provides colored terminal output helpers for the CLI layer.
// Library packages return errors; only the CLI talks to the terminal.
package ui

import (
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	stepColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// Header prints a banner with the text centered between rules.
func Header(text string) {
	rule := strings.Repeat("=", headerWidth)
	headerColor.Println(rule)
	headerColor.Println(center(text, headerWidth))
	headerColor.Println(rule)
}

// Step prints a numbered progress line.
func Step(current, total int, text string) {
	stepColor.Printf("[%d/%d] %s\n", current, total, text)
}

func Success(text string) {
	successColor.Printf("✓ %s\n", text)
}

func Info(text string) {
	infoColor.Println(text)
}

func Warning(text string) {
	warningColor.Printf("⚠ %s\n", text)
}

func Error(text string) {
	errorColor.Printf("✗ %s\n", text)
}

// BlueText prints without a status marker.
func BlueText(text string) {
	stepColor.Println(text)
}

// YellowText prints without a status marker.
func YellowText(text string) {
	warningColor.Println(text)
}

// center left-pads text to sit in the middle of width. Text wider than the
// field is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}
