// Package game holds the value types exchanged between the host and a game extension.
package game

import "context"

// InstructionCopy is the only instruction type extensions in this repository produce.
const InstructionCopy = "copy"

type ToolDescriptor struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	ShortName     string   `json:"shortName,omitempty" yaml:"shortName,omitempty"`
	Logo          string   `json:"logo,omitempty" yaml:"logo,omitempty"`
	Executable    string   `json:"executable" yaml:"executable"`
	RequiredFiles []string `json:"requiredFiles" yaml:"requiredFiles"`
	Shell         bool     `json:"shell,omitempty" yaml:"shell,omitempty"`
}

// StoreDetails lists the storefront ids a game is sold under.
type StoreDetails struct {
	SteamAppID string `json:"steamAppId,omitempty" yaml:"steamAppId,omitempty"`
	GOGAppID   string `json:"gogAppId,omitempty" yaml:"gogAppId,omitempty"`
}

type GameDescriptor struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	MergeMods     bool              `json:"mergeMods" yaml:"mergeMods"`
	Logo          string            `json:"logo,omitempty" yaml:"logo,omitempty"`
	Executable    string            `json:"executable" yaml:"executable"`
	ModPath       string            `json:"modPath" yaml:"modPath"`
	RequiredFiles []string          `json:"requiredFiles" yaml:"requiredFiles"`
	Environment   map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
	Details       StoreDetails      `json:"details" yaml:"details"`
	Tools         []ToolDescriptor  `json:"supportedTools" yaml:"supportedTools"`

	// HostConstraint is a semver constraint the host API version has to satisfy. Empty means any.
	HostConstraint string `json:"hostConstraint,omitempty" yaml:"hostConstraint,omitempty"`

	QueryPath QueryPathFunc `json:"-" yaml:"-"`
	Setup     SetupFunc     `json:"-" yaml:"-"`
}

// DiscoverySource names where a discovered install path came from.
type DiscoverySource string

const (
	SourceRegistry DiscoverySource = "registry"
	SourceSteam    DiscoverySource = "steam"
	SourceGOG      DiscoverySource = "gog"
	SourceOverride DiscoverySource = "override"
	SourceCache    DiscoverySource = "cache"
	SourceUnknown  DiscoverySource = "unknown"
)

type DiscoveryResult struct {
	Path   string          `json:"path" yaml:"path"`
	Source DiscoverySource `json:"source,omitempty" yaml:"source,omitempty"`
}

type SupportResult struct {
	Supported     bool     `json:"supported" yaml:"supported"`
	RequiredFiles []string `json:"requiredFiles" yaml:"requiredFiles"`
}

type InstallInstruction struct {
	Type        string `json:"type" yaml:"type"`
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
}

type (
	// QueryPathFunc finds the install folder and reports which source found it.
	QueryPathFunc   func(ctx context.Context) (DiscoveryResult, error)
	SetupFunc       func(ctx context.Context, discovery DiscoveryResult) error
	TestSupportFunc func(files []string, gameID string) SupportResult
	InstallFunc     func(files []string) ([]InstallInstruction, error)
)

// Extension is the capability set a game extension provides to the host adapter.
type Extension interface {
	Locate(ctx context.Context) (DiscoveryResult, error)
	Prepare(ctx context.Context, discovery DiscoveryResult) error
	Classify(files []string, gameID string) SupportResult
	MapInstructions(files []string) ([]InstallInstruction, error)
}

// DeployedFile is a file the host copied into the game folder while installing a mod.
type DeployedFile struct {
	Source      string `json:"source" yaml:"source"`
	Destination string `json:"destination" yaml:"destination"`
	Size        int64  `json:"size" yaml:"size"`
	Checksum    string `json:"checksum" yaml:"checksum"`
}
