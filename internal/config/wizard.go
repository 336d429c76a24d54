package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/nlweb/chatpanel/internal/panel"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to nlchat! Let's configure the chat debug page.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Port.
	portPrompt := promptui.Prompt{
		Label:    "Port to serve the chat page on",
		Default:  strconv.Itoa(cfg.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	// 2. Where the site list comes from.
	sourcePrompt := promptui.Select{
		Label: "Site list source",
		Items: []string{
			"local: sqlite catalog served by nlchat",
			"remote: an existing backend's /sites endpoint",
		},
	}
	sourceIdx, _, err := sourcePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site source: %w", err)
	}
	if sourceIdx == 1 {
		urlPrompt := promptui.Prompt{
			Label:    "Backend base URL",
			Validate: validateURL,
		}
		sitesURL, err := urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("sites url: %w", err)
		}
		cfg.SitesURL = strings.TrimSpace(sitesURL)
	}

	// 3. Site control.
	controlPrompt := promptui.Select{
		Label: "Site control",
		Items: []string{"dropdown", "text input"},
	}
	controlIdx, _, err := controlPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("site control: %w", err)
	}
	cfg.UseTextInputForSite = controlIdx == 1

	// 4. Default generate mode.
	modePrompt := promptui.Select{
		Label: "Default generate mode",
		Items: panel.Modes,
	}
	_, cfg.DefaultMode, err = modePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("generate mode: %w", err)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	p, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("enter an absolute URL such as http://localhost:8000")
	}
	return nil
}
