package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/archives"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/deploy"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/ghostrunner"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/storage"
)

type testResult struct {
	Archive   string   `json:"archive" yaml:"archive"`
	Files     []string `json:"files" yaml:"files"`
	Installer string   `json:"installer,omitempty" yaml:"installer,omitempty"`
	game.SupportResult `yaml:",inline"`
}

// testArchive asks the registered installers whether they can handle the archive's content.
func testArchive(ctx context.Context, hc *host.Context, archive string) (testResult, error) {
	files, err := archives.ListFiles(archive)
	if err != nil {
		return testResult{}, err
	}

	result := testResult{Archive: archive, Files: files}
	inst, support, err := hc.FindInstaller(ctx, files, ghostrunner.GameID)
	if err != nil {
		if eris.Is(err, host.ErrNotSupported) {
			result.RequiredFiles = []string{}
			return result, nil
		}
		return result, err
	}

	result.Installer = inst.Name
	result.SupportResult = support
	return result, nil
}

// modPath returns the absolute folder install destinations are relative to.
func modPath(hc *host.Context, discovery game.DiscoveryResult) (string, error) {
	desc, err := hc.Game(ghostrunner.GameID)
	if err != nil {
		return "", err
	}

	return filepath.Join(discovery.Path, filepath.FromSlash(desc.ModPath)), nil
}

// installArchive runs the whole install pipeline for one archive: pick an installer, map the
// files, extract into staging, deploy into the game and record the result. A failure leaves the
// game folder as it was before.
func installArchive(ctx context.Context, hc *host.Context, stagingPath, archive, name string) (*storage.InstallRecord, error) {
	files, err := archives.ListFiles(archive)
	if err != nil {
		return nil, err
	}

	inst, _, err := hc.FindInstaller(ctx, files, ghostrunner.GameID)
	if err != nil {
		return nil, eris.Wrapf(err, "can't install %s", archive)
	}

	instructions, err := hc.Install(ctx, inst.Name, files)
	if err != nil {
		return nil, err
	}

	discovery, err := hc.Discover(ctx, ghostrunner.GameID)
	if err != nil {
		return nil, err
	}

	err = hc.Setup(ctx, ghostrunner.GameID, discovery)
	if err != nil {
		return nil, err
	}

	target, err := modPath(hc, discovery)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(archive), filepath.Ext(archive))
	}

	rec := &storage.InstallRecord{
		ID:           nanoid.New(),
		GameID:       ghostrunner.GameID,
		Name:         name,
		Archive:      archive,
		Installer:    inst.Name,
		Instructions: instructions,
	}

	stagingDir := filepath.Join(stagingPath, rec.ID)
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			api.Log(ctx, api.LogWarn, "Failed to clean up %s: %v", stagingDir, err)
		}
	}()

	err = archives.Extract(ctx, archive, stagingDir)
	if err != nil {
		return nil, err
	}

	deployment, err := deploy.Apply(ctx, stagingDir, target, instructions)
	if err != nil {
		return nil, err
	}
	rec.Files = deployment.Files

	err = storage.BatchUpdate(ctx, func(ctx context.Context) error {
		if err := storage.SaveInstall(ctx, rec); err != nil {
			return err
		}

		// refresh the cached discovery together with the install that relies on it
		if discovery.Source == game.SourceOverride || discovery.Source == game.SourceCache {
			return nil
		}
		return storage.SaveDiscovery(ctx, ghostrunner.GameID, discovery)
	})
	if err != nil {
		if rbErr := deployment.Rollback(ctx); rbErr != nil {
			api.Log(ctx, api.LogError, "Rollback failed: %s", eris.ToString(rbErr, false))
		}
		return nil, err
	}
	deployment.Commit(ctx)

	api.Log(ctx, api.LogInfo, "Installed %s (%s) with %d files", rec.Name, rec.ID, len(rec.Files))
	return rec, nil
}

func uninstall(ctx context.Context, hc *host.Context, id string) (*storage.InstallRecord, error) {
	rec, err := storage.GetInstall(ctx, id)
	if err != nil {
		return nil, err
	}

	discovery, err := hc.Discover(ctx, rec.GameID)
	if err != nil {
		return nil, err
	}

	target, err := modPath(hc, discovery)
	if err != nil {
		return nil, err
	}

	err = deploy.Remove(ctx, target, rec.Files)
	if err != nil {
		return nil, err
	}

	err = storage.DeleteInstall(ctx, id)
	if err != nil {
		return nil, err
	}

	api.Log(ctx, api.LogInfo, "Removed %s (%s)", rec.Name, rec.ID)
	return rec, nil
}

func verify(ctx context.Context, hc *host.Context, id string) ([]deploy.Mismatch, error) {
	rec, err := storage.GetInstall(ctx, id)
	if err != nil {
		return nil, err
	}

	discovery, err := hc.Discover(ctx, rec.GameID)
	if err != nil {
		return nil, err
	}

	target, err := modPath(hc, discovery)
	if err != nil {
		return nil, err
	}

	return deploy.Verify(ctx, target, rec.Files)
}

var testCmd = &cobra.Command{
	Use:   "test <archive>",
	Short: "Check whether an archive can be installed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := testArchive(current.ctx, current.host, args[0])
		if err != nil {
			return err
		}

		return printResult(cmd, result)
	},
}

var installCmd = &cobra.Command{
	Use:   "install <archive>",
	Short: "Install a mod archive into the game",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return eris.Wrap(err, "failed to check --dry-run flag")
		}

		if dryRun {
			files, err := archives.ListFiles(args[0])
			if err != nil {
				return err
			}

			inst, _, err := current.host.FindInstaller(current.ctx, files, ghostrunner.GameID)
			if err != nil {
				return err
			}

			instructions, err := current.host.Install(current.ctx, inst.Name, files)
			if err != nil {
				return err
			}

			return printResult(cmd, instructions)
		}

		name, err := cmd.Flags().GetString("name")
		if err != nil {
			return eris.Wrap(err, "failed to check --name flag")
		}

		rec, err := installArchive(current.ctx, current.host, current.cfg.StagingPath, args[0], name)
		if err != nil {
			return err
		}

		return printResult(cmd, rec)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed mods",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		installs, err := storage.ListInstalls(current.ctx, ghostrunner.GameID)
		if err != nil {
			return err
		}

		return printResult(cmd, installs)
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <id>",
	Short: "Remove an installed mod",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := uninstall(current.ctx, current.host, args[0])
		if err != nil {
			return err
		}

		return printResult(cmd, rec)
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Check an installed mod's files against their recorded checksums",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mismatches, err := verify(current.ctx, current.host, args[0])
		if err != nil {
			return err
		}

		if len(mismatches) == 0 {
			api.Log(current.ctx, api.LogInfo, "All files of %s are intact", args[0])
		}
		return printResult(cmd, mismatches)
	},
}

func init() {
	installCmd.Flags().Bool("dry-run", false, "only print the install instructions")
	installCmd.Flags().String("name", "", "name to record the mod under (defaults to the archive name)")

	for _, cmd := range []*cobra.Command{testCmd, installCmd, listCmd, uninstallCmd, verifyCmd} {
		addFormatFlag(cmd)
		rootCmd.AddCommand(cmd)
	}
}
