package config

import (
	"strings"

	gotoml "github.com/pelletier/go-toml/v2"
)

// GenerateConfigContent renders a .deftsilo.toml template with every
// value present but commented out, so the file documents the defaults
// without pinning them.
func GenerateConfigContent() (string, error) {
	rendered, err := gotoml.Marshal(Config{
		Output:  DefaultOutput,
		Exclude: []string{"README.md"},
	})
	if err != nil {
		return "", err
	}

	header := "# deftsilo configuration\n" +
		"# Place this file in the root of your dotfiles tree.\n\n"
	return header + commentOutConfigValues(string(rendered)), nil
}

// commentOutConfigValues takes the TOML content and comments out all
// non-comment, non-blank lines that contain configuration values
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	var result []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Keep blank lines as-is
		if trimmed == "" {
			result = append(result, line)
			continue
		}

		// Keep lines that are already comments
		if strings.HasPrefix(trimmed, "#") {
			result = append(result, line)
			continue
		}

		// Keep section headers as-is
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			result = append(result, line)
			continue
		}

		result = append(result, "# "+line)
	}

	return strings.Join(result, "\n")
}
