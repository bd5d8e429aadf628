// Package flagx lets several configuration layers read their own flags from
// os.Args without tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags together with their
// values. Both "-f value" and "-f=value" forms are recognised; a following
// token that starts with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// stringFlag parses a single string flag known under several names.
func stringFlag(names ...string) string {
	var value string

	args := FilterArgs(os.Args[1:], prefixed(names))

	fs := flag.NewFlagSet(names[0], flag.ContinueOnError)
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
	}
	_ = fs.Parse(args)

	return value
}

func prefixed(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = "-" + n
	}
	return out
}

// JsonConfigFlags returns the JSON config path given with -c or -config,
// or "" when neither is present.
func JsonConfigFlags() string {
	return stringFlag("config", "c")
}

// EnvFileFlags returns the dotenv path given with -env-file, or "".
func EnvFileFlags() string {
	return stringFlag("env-file")
}
