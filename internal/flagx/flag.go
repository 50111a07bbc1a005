// Package flagx lets several configuration layers share one command line:
// each layer picks the flags it owns out of os.Args before parsing.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// ConfigEnvName names the environment variable consulted when no -c/-config
// flag is given.
const ConfigEnvName = "GOPHGALLERY_CONFIG"

// FilterArgs returns only the allowed flags from args, together with their
// values. Both "-c conf.json" and "--config=conf.json" forms are recognized.
// A following token that starts with "-" is never taken as a value.
//
// The result is never nil.
func FilterArgs(args []string, allowedFlags []string) []string {
	return filterArgs(args, allowedFlags, nil)
}

// ParseKnown parses into fs only the flags fs defines, in either the -name
// or the --name spelling. Unknown flags and positional arguments are
// skipped. Boolean flags never consume the following token.
func ParseKnown(fs *flag.FlagSet, args []string) error {
	var allowed, boolean []string
	fs.VisitAll(func(f *flag.Flag) {
		names := []string{"-" + f.Name, "--" + f.Name}
		allowed = append(allowed, names...)
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			boolean = append(boolean, names...)
		}
	})
	return fs.Parse(filterArgs(args, allowed, boolean))
}

func filterArgs(args, allowedFlags, boolFlags []string) []string {
	allowed := make(map[string]bool, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = false
	}
	for _, f := range boolFlags {
		allowed[f] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, known := allowed[name]; known {
				filtered = append(filtered, arg)
			}
			continue
		}

		isBool, known := allowed[arg]
		if !known {
			continue
		}
		filtered = append(filtered, arg)
		if !isBool && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigFilePath returns the JSON config path given with -c or -config in
// args, falling back to $GOPHGALLERY_CONFIG. Empty means no file.
func ConfigFilePath(args []string) string {
	var config string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = ParseKnown(fs, args)

	if config == "" {
		config = os.Getenv(ConfigEnvName)
	}
	return config
}
