//go:build !windows

package platform

import "github.com/rotisserie/eris"

var errNoRegistry = eris.New("the registry is only available on Windows")

func readRegistryString(Hive, string, string) (string, error) {
	return "", errNoRegistry
}
