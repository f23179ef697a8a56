package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashgraph-online/dip721-sdk-go/pkg/shared"
)

// AnonymousName is the dfx identity name that maps to unsigned requests.
const AnonymousName = "anonymous"

// Provider yields the identity used to sign requests.
type Provider interface {
	Identity() (Identity, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() (Identity, error)

func (f ProviderFunc) Identity() (Identity, error) { return f() }

// StaticProvider always returns the same identity.
type StaticProvider struct {
	Value Identity
}

func (p StaticProvider) Identity() (Identity, error) {
	if p.Value == nil {
		return nil, fmt.Errorf("static identity is not set")
	}
	return p.Value, nil
}

// PEMFileProvider loads an identity from a PEM file.
type PEMFileProvider struct {
	Path string
}

func (p PEMFileProvider) Identity() (Identity, error) {
	return FromPEMFile(p.Path)
}

// DFXProvider follows the dfx layout: $HOME/.config/dfx/identity.json names the
// default identity, whose key lives in identity/<name>/identity.pem.
type DFXProvider struct {
	Home string
	Name string
}

type dfxIdentityIndex struct {
	Default string `json:"default"`
}

func (p DFXProvider) Identity() (Identity, error) {
	home := strings.TrimSpace(p.Home)
	if home == "" {
		resolved, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		home = resolved
	}
	configDir := filepath.Join(home, ".config", "dfx")

	name := strings.TrimSpace(p.Name)
	if name == "" {
		indexPath := filepath.Join(configDir, "identity.json")
		raw, err := os.ReadFile(indexPath)
		if err != nil {
			return nil, fmt.Errorf("configure an identity in dfx or provide an identity PEM file: %w", err)
		}
		var index dfxIdentityIndex
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", indexPath, err)
		}
		name = strings.TrimSpace(index.Default)
		if name == "" {
			return nil, fmt.Errorf("%s does not name a default identity", indexPath)
		}
	}

	if name == AnonymousName {
		return Anonymous(), nil
	}
	return FromPEMFile(filepath.Join(configDir, "identity", name, "identity.pem"))
}

// EnvironmentProvider resolves the identity from DIP721_IDENTITY_PEM or
// DIP721_IDENTITY, falling back to the dfx default identity.
type EnvironmentProvider struct {
	Home string
}

func (p EnvironmentProvider) Identity() (Identity, error) {
	config := shared.OperatorConfigFromEnv()
	if config.IdentityPEM != "" {
		return FromPEMFile(config.IdentityPEM)
	}
	return DFXProvider{Home: p.Home, Name: config.IdentityName}.Identity()
}
