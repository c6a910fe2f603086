// Package host implements the host side of the game extension contract: extensions register
// their game and installers on a Context and the host drives discovery, setup and installation
// through it.
package host

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
)

var (
	ErrUnknownGame      = eris.New("unknown game")
	ErrUnknownInstaller = eris.New("unknown installer")
	ErrDuplicate        = eris.New("already registered")
	ErrIncompatibleHost = eris.New("host version not supported by extension")
)

type Installer struct {
	Name     string
	Priority int
	Test     game.TestSupportFunc
	Install  game.InstallFunc
}

// Context collects the registrations of all loaded extensions.
type Context struct {
	version *semver.Version
	cache   DiscoveryCache

	lock       sync.RWMutex
	games      map[string]game.GameDescriptor
	gameOrder  []string
	installers []Installer
}

// NewContext creates a registration context for a host implementing the given API version.
// cache may be nil in which case discoveries aren't remembered.
func NewContext(apiVersion string, cache DiscoveryCache) (*Context, error) {
	version, err := semver.StrictNewVersion(apiVersion)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid host API version %s", apiVersion)
	}

	return &Context{
		version: version,
		cache:   cache,
		games:   make(map[string]game.GameDescriptor),
	}, nil
}

func (c *Context) Version() string {
	return c.version.String()
}

func (c *Context) RegisterGame(desc game.GameDescriptor) error {
	if desc.ID == "" {
		return eris.New("game descriptor without id")
	}

	if desc.QueryPath == nil {
		return eris.Errorf("game %s has no path query", desc.ID)
	}

	if desc.HostConstraint != "" {
		constraint, err := semver.NewConstraint(desc.HostConstraint)
		if err != nil {
			return eris.Wrapf(err, "game %s has an invalid host constraint %s", desc.ID, desc.HostConstraint)
		}

		if !constraint.Check(c.version) {
			return eris.Wrapf(ErrIncompatibleHost, "game %s requires host %s, have %s", desc.ID, desc.HostConstraint, c.version)
		}
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	if _, ok := c.games[desc.ID]; ok {
		return eris.Wrapf(ErrDuplicate, "game %s", desc.ID)
	}

	c.games[desc.ID] = desc
	c.gameOrder = append(c.gameOrder, desc.ID)
	return nil
}

func (c *Context) RegisterInstaller(name string, priority int, test game.TestSupportFunc, install game.InstallFunc) error {
	if name == "" || test == nil || install == nil {
		return eris.Errorf("incomplete installer registration %q", name)
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	for _, inst := range c.installers {
		if inst.Name == name {
			return eris.Wrapf(ErrDuplicate, "installer %s", name)
		}
	}

	c.installers = append(c.installers, Installer{
		Name:     name,
		Priority: priority,
		Test:     test,
		Install:  install,
	})

	// Lower priorities are asked first; equal priorities keep their registration order.
	sort.SliceStable(c.installers, func(i, j int) bool {
		return c.installers[i].Priority < c.installers[j].Priority
	})
	return nil
}

func (c *Context) Game(id string) (game.GameDescriptor, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	desc, ok := c.games[id]
	if !ok {
		return game.GameDescriptor{}, eris.Wrapf(ErrUnknownGame, "%s", id)
	}
	return desc, nil
}

func (c *Context) Games() []game.GameDescriptor {
	c.lock.RLock()
	defer c.lock.RUnlock()

	result := make([]game.GameDescriptor, 0, len(c.gameOrder))
	for _, id := range c.gameOrder {
		result = append(result, c.games[id])
	}
	return result
}

// Installers returns the registered installers in the order they're consulted.
func (c *Context) Installers() []Installer {
	c.lock.RLock()
	defer c.lock.RUnlock()

	result := make([]Installer, len(c.installers))
	copy(result, c.installers)
	return result
}

func (c *Context) installer(name string) (Installer, error) {
	for _, inst := range c.Installers() {
		if inst.Name == name {
			return inst, nil
		}
	}
	return Installer{}, eris.Wrapf(ErrUnknownInstaller, "%s", name)
}
