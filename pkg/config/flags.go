package config

import (
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// ApplyFlags overrides K with the flags the user set explicitly and
// reloads Config. keys maps flag names to config keys; other flags are
// ignored.
func ApplyFlags(fs *pflag.FlagSet, keys map[string]string) error {
	cfg, err := LoadFlags(K, fs, keys)
	if err != nil {
		return err
	}

	Config = cfg
	return nil
}

// LoadFlags layers the changed flags of fs on top of k.
func LoadFlags(k *koanf.Koanf, fs *pflag.FlagSet, keys map[string]string) (*Configuration, error) {
	provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := keys[f.Name]
		if !ok {
			return "", nil
		}

		if sv, ok := f.Value.(pflag.SliceValue); ok {
			return key, sv.GetSlice()
		}
		return key, f.Value.String()
	})

	if err := k.Load(provider, nil); err != nil {
		return nil, errors.Wrap(err, "load flags")
	}

	return unmarshal(k)
}
