package internal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	// CommandContext allows overriding the command creation for testing
	CommandContext = exec.CommandContext
	// LookPath allows overriding the lookup behavior for testing
	LookPath = exec.LookPath
)

// SecretPrefix marks a 1Password secret reference
const SecretPrefix = "op://"

// IsSecretReference reports whether value is a 1Password secret reference
func IsSecretReference(value string) bool {
	return strings.HasPrefix(value, SecretPrefix)
}

// ResolveSecret returns value, reading it from 1Password first when it is a
// secret reference (e.g. op://vault/sql-api/token).
func ResolveSecret(ctx context.Context, value string) (string, error) {
	if !IsSecretReference(value) {
		return value, nil
	}

	if _, err := LookPath("op"); err != nil {
		return "", fmt.Errorf("1Password CLI (op) not found in PATH: %w", err)
	}

	output, err := CommandContext(ctx, "op", "read", "--no-newline", value).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("failed to read secret %s: %s", value, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("failed to read secret %s: %w", value, err)
	}

	secret := strings.TrimSpace(string(output))
	if secret == "" {
		return "", fmt.Errorf("secret %s is empty", value)
	}
	return secret, nil
}
