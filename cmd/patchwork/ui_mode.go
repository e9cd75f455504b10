package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/valoeghese/patchwork-patcher/internal/config"
)

func readUIMode(value string) (string, error) {
	switch v := strings.TrimSpace(strings.ToLower(value)); v {
	case "":
		return config.UIAuto, nil
	case config.UIAuto, config.UIOn, config.UIOff:
		return v, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

func shouldUseTUI(mode string) bool {
	switch mode {
	case config.UIOn:
		return true
	case config.UIOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

func applyColorMode(value string) error {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		color.NoColor = !isTerminal(os.Stderr)
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
	return nil
}
