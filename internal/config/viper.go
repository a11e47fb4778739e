package config

import (
	"strings"

	"github.com/spf13/viper"
)

// v is the process-wide settings source for every risk and exchange
// parameter: environment variables first (so operators can override a
// single key without a file), falling back to an optional CONFIG_FILE
// (YAML/JSON/TOML, whatever extension it carries) and finally to the
// per-key default passed to envString/envFloat/envInt at the call site.
var v = newViper()

func newViper() *viper.Viper {
	vp := viper.New()
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()
	if path := vp.GetString("CONFIG_FILE"); path != "" {
		vp.SetConfigFile(path)
		_ = vp.ReadInConfig() // missing/malformed file: fall through to env/defaults
	}
	return vp
}

func envString(key, def string) string {
	v.SetDefault(key, def)
	return v.GetString(key)
}

func envFloat(key string, def float64) float64 {
	v.SetDefault(key, def)
	return v.GetFloat64(key)
}

func envInt(key string, def int) int {
	v.SetDefault(key, def)
	return v.GetInt(key)
}
