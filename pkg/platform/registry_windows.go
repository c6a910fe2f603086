package platform

import (
	"github.com/rotisserie/eris"
	"golang.org/x/sys/windows/registry"
)

var hiveKeys = map[Hive]registry.Key{
	LocalMachine: registry.LOCAL_MACHINE,
	CurrentUser:  registry.CURRENT_USER,
}

func readRegistryString(hive Hive, path, name string) (string, error) {
	root, ok := hiveKeys[hive]
	if !ok {
		return "", eris.Errorf("unknown registry hive %d", hive)
	}

	key, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		return "", eris.Wrapf(err, "failed to open %s\\%s", hive, path)
	}
	defer key.Close()

	value, _, err := key.GetStringValue(name)
	if err != nil {
		return "", eris.Wrapf(err, "failed to read %s from %s\\%s", name, hive, path)
	}

	return value, nil
}
