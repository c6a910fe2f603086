package platform

import (
	"context"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
)

type Hive int

const (
	LocalMachine Hive = iota
	CurrentUser
)

func (h Hive) String() string {
	switch h {
	case LocalMachine:
		return "HKEY_LOCAL_MACHINE"
	case CurrentUser:
		return "HKEY_CURRENT_USER"
	default:
		return "HKEY_UNKNOWN"
	}
}

// RegistryLookup reads a string value from the registry. ok is false whenever no usable value
// exists, including empty values.
type RegistryLookup func(ctx context.Context, hive Hive, key, name string) (value string, ok bool)

// LookupRegistryString is the RegistryLookup backed by the operating system. A missing key, a
// missing value, an access error and an unsupported platform are all reported as a miss.
func LookupRegistryString(ctx context.Context, hive Hive, key, name string) (string, bool) {
	value, err := readRegistryString(hive, key, name)
	if err != nil {
		api.Log(ctx, api.LogDebug, "Registry lookup %s\\%s [%s] missed: %v", hive, key, name, err)
		return "", false
	}

	if value == "" {
		api.Log(ctx, api.LogDebug, "Registry value %s\\%s [%s] is empty", hive, key, name)
		return "", false
	}

	return value, true
}
