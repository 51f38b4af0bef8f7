package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/asrkit/util"
)

// FileSystem is the file access the loader needs. Tests swap it out.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func (osFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// LoaderConfig holds the loader's dependencies and explicit file paths.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// EnvAliases maps a legacy env var prefix to the prefix it stands for.
	EnvAliases map[string]string
}

// LoaderOption configures LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the OS file system.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the config.yml search and reads path instead.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the .env search and reads path instead.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvAlias makes env vars starting with from act as if they started
// with to, e.g. LEGACY_API_KEY as ASR_API_KEY. A variable spelled with to
// wins over its alias.
func WithEnvAlias(from, to string) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.EnvAliases == nil {
			lc.EnvAliases = map[string]string{}
		}
		lc.EnvAliases[from] = to
	}
}

// ResolvedFiles are the files LoadConfig will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver locates config.yml and .env for a service.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles returns the explicit paths in lc, searching for the ones
// left empty. The search walks cmd/<service>, config/<service>, config and
// the working directory, each from ".", ".." and "../..", so a binary run
// from a package test directory still finds its files.
func (r *Resolver) ResolveFiles(serviceName string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	dirs := searchDirs(serviceName)
	if files.ConfigFile == "" {
		files.ConfigFile = r.first(dirs, "config.yml", "config.yaml")
	}
	if files.EnvFile == "" {
		files.EnvFile = r.first(dirs, ".env."+serviceName, ".env")
	}
	return files
}

func (r *Resolver) first(dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			p := filepath.ToSlash(filepath.Join(dir, name))
			if !strings.HasPrefix(p, "..") {
				p = "./" + p
			}
			if r.FileSystem.Exists(p) {
				return p
			}
		}
	}
	return ""
}

func searchDirs(serviceName string) []string {
	bases := []string{
		filepath.Join("cmd", serviceName),
		filepath.Join("config", serviceName),
		"config",
		".",
	}
	var dirs []string
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		for _, b := range bases {
			dirs = append(dirs, filepath.Join(up, b))
		}
	}
	return dirs
}

// LoadConfig fills cfg from, in increasing priority: the values already in
// cfg, config.yml, .env and the process environment. Keys only present in
// neither file nor environment keep the value cfg was created with.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{FileSystem: osFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	files := (&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	// godotenv never overrides variables that are already set.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindEnviron(v, os.Environ(), lc.EnvAliases)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("decode config for %s: %w", serviceName, err)
	}
	return nil
}

func bindEnviron(v *viper.Viper, environ []string, aliases map[string]string) {
	type envVar struct{ key, value string }
	var aliased, direct []envVar
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		value = util.SanitizeEnvValue(value)
		for from, to := range aliases {
			if rest, ok := strings.CutPrefix(key, from); ok && rest != "" {
				aliased = append(aliased, envVar{to + rest, value})
			}
		}
		direct = append(direct, envVar{key, value})
	}
	// Direct names are set last so they override their aliases.
	for _, e := range append(aliased, direct...) {
		for _, k := range envKeyVariants(e.key) {
			v.Set(k, e.value)
		}
	}
}

// maxSplitParts bounds the variant expansion, which is exponential in the
// number of underscores.
const maxSplitParts = 6

// envKeyVariants maps an env var name to every config key it could mean.
// Each underscore is either a nesting dot or a literal underscore, so
// ASR_MAX_RETRIES yields asr.max_retries among others.
func envKeyVariants(envKey string) []string {
	parts := strings.Split(strings.ToLower(envKey), "_")
	if len(parts) == 1 {
		return parts
	}
	if len(parts) > maxSplitParts {
		return []string{strings.Join(parts, "_"), strings.Join(parts, ".")}
	}

	gaps := len(parts) - 1
	out := make([]string, 0, 1<<gaps)
	var b strings.Builder
	for mask := 0; mask < 1<<gaps; mask++ {
		b.Reset()
		b.WriteString(parts[0])
		for i := 1; i < len(parts); i++ {
			if mask&(1<<(i-1)) != 0 {
				b.WriteByte('.')
			} else {
				b.WriteByte('_')
			}
			b.WriteString(parts[i])
		}
		out = append(out, b.String())
	}
	return out
}
