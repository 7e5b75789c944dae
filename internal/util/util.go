// Package util provides logging, HTTP plumbing and terminal helpers shared by every package
package util

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
)

var (
	IsDebug bool

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Underline(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4757")).
			Bold(true)

	debugErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4757")).
			Padding(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA726")).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF69B4")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

// SetDebugMode sets the debug mode
func SetDebugMode(debug bool) {
	IsDebug = debug
}

// Heading renders s in the title style
func Heading(s string) string {
	return titleStyle.Render(s)
}

// ErrorHandler returns a stylized error message
func ErrorHandler(err error) string {
	if IsDebug {
		styledHeader := errorStyle.Render("DEBUG ERROR")
		styledError := debugErrorStyle.Render(fmt.Sprintf("%+v", err))
		return fmt.Sprintf("%s\n%s", styledHeader, styledError)
	}

	styledError := errorStyle.Render(fmt.Sprintf("x %v", err))
	styledHint := warningStyle.Render("run the command with --debug to see details")
	return fmt.Sprintf("%s\n%s", styledError, styledHint)
}

// Prompt asks the user for a line of text of at least minLength characters
func Prompt(label string, minLength int) (string, error) {
	validate := func(input string) error {
		if len(strings.TrimSpace(input)) < minLength {
			return fmt.Errorf("input must have at least %d characters", minLength)
		}
		return nil
	}

	if runtime.GOOS == "windows" {
		fmt.Print(promptStyle.Render(label + ": "))
		reader := bufio.NewReader(os.Stdin)
		input, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		input = strings.TrimSpace(input)
		return input, validate(input)
	}

	prompt := promptui.Prompt{
		Label:    promptStyle.Render(label),
		Validate: validate,
	}
	input, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// SelectMenuItem provides a cross-platform way to select from a menu
func SelectMenuItem(label string, items []string) (int, string, error) {
	if len(items) == 0 {
		return -1, "", fmt.Errorf("nothing to select for %q", label)
	}

	// readline ANSI handling is unreliable on Windows consoles
	if runtime.GOOS == "windows" {
		return simpleSelectMenu(label, items)
	}

	prompt := promptui.Select{
		Label: promptStyle.Render(label),
		Items: items,
		Size:  15,
	}

	index, result, err := prompt.Run()
	if err != nil {
		return -1, "", err
	}

	fmt.Println(successStyle.Render("✓ Selected: " + result))
	return index, result, nil
}

// simpleSelectMenu provides a numbered menu for Windows systems
func simpleSelectMenu(label string, items []string) (int, string, error) {
	fmt.Println(promptStyle.Render(label))
	for i, item := range items {
		fmt.Printf("%d. %s\n", i+1, item)
	}

	fmt.Print(promptStyle.Render(fmt.Sprintf("Enter selection (1-%d): ", len(items))))
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return -1, "", err
	}

	input = strings.TrimSpace(input)
	var selection int
	_, err = fmt.Sscanf(input, "%d", &selection)
	if err != nil || selection < 1 || selection > len(items) {
		return -1, "", fmt.Errorf("invalid selection: %s", input)
	}
	selection--

	fmt.Println(successStyle.Render("✓ Selected: " + items[selection]))
	return selection, items[selection], nil
}
