package main

import (
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/ghostrunner"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the game descriptor the extension registers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		desc, err := current.host.Game(ghostrunner.GameID)
		if err != nil {
			return err
		}

		return printResult(cmd, desc)
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Check which modding tools are installed in the game folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		discovery, err := current.host.Discover(current.ctx, ghostrunner.GameID)
		if err != nil {
			return err
		}

		desc, err := current.host.Game(ghostrunner.GameID)
		if err != nil {
			return err
		}

		states := make([]host.ToolState, 0, len(desc.Tools))
		for _, tool := range desc.Tools {
			state := host.ToolStatus(discovery.Path, tool)
			if !state.Found {
				api.Log(current.ctx, api.LogInfo, "%s is not installed (missing %v)", tool.Name, state.Missing)
			}
			states = append(states, state)
		}

		return printResult(cmd, states)
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Locate the Ghostrunner installation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		discovery, err := current.host.Discover(current.ctx, ghostrunner.GameID)
		if err != nil {
			return err
		}

		api.Log(current.ctx, api.LogInfo, "Found %s at %s", ghostrunner.GameName, discovery.Path)
		return printResult(cmd, discovery)
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the folders mods get installed to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		discovery, err := current.host.Discover(current.ctx, ghostrunner.GameID)
		if err != nil {
			return err
		}

		err = current.host.Setup(current.ctx, ghostrunner.GameID, discovery)
		if err != nil {
			return err
		}

		dirs := ghostrunner.ModDirs(discovery.Path)
		api.Log(current.ctx, api.LogInfo, "%s is ready for modding", ghostrunner.GameName)
		return printResult(cmd, struct {
			Discovery game.DiscoveryResult `json:"discovery" yaml:"discovery"`
			Folders   []string             `json:"folders" yaml:"folders"`
		}{discovery, dirs})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{infoCmd, toolsCmd, discoverCmd, setupCmd} {
		addFormatFlag(cmd)
		rootCmd.AddCommand(cmd)
	}
}
