package main

import "strings"

// legacyFlags are long flags historically spelled with a single dash.
var legacyFlags = map[string]bool{
	"ip":     true,
	"dt":     true,
	"cd":     true,
	"ds":     true,
	"de":     true,
	"days":   true,
	"report": true,
}

// normalizeArgs rewrites "-days 7" style arguments to "--days 7" so pflag
// does not read them as a group of shorthands. Arguments after "--" are
// left alone.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, a := range args {
		if a == "--" {
			return append(out, args[i:]...)
		}
		if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") {
			name := strings.SplitN(a[1:], "=", 2)[0]
			if legacyFlags[name] {
				a = "-" + a
			}
		}
		out = append(out, a)
	}
	return out
}
