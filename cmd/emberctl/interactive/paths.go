package interactive

import (
	"strings"

	"github.com/jonnelaakso/emberplus-go/pkg/treepath"
)

// resolvePath turns shell input into a tree path relative to cwd.
//
//	/         the root
//	/0.1      absolute
//	..        parent of cwd
//	../Mute   sibling of cwd
//	Gain      cwd joined with Gain
func resolvePath(cwd, arg string) string {
	arg = strings.TrimSpace(arg)
	switch {
	case arg == "" || arg == ".":
		return treepath.Normalize(cwd)
	case strings.HasPrefix(arg, "/"):
		return treepath.Normalize(strings.TrimPrefix(arg, "/"))
	}

	base := treepath.Normalize(cwd)
	for {
		switch {
		case arg == "..":
			return treepath.Parent(base)
		case strings.HasPrefix(arg, "../"):
			base = treepath.Parent(base)
			arg = strings.TrimPrefix(arg, "../")
			continue
		}
		return treepath.Join(base, arg)
	}
}

// prompt renders the readline prompt for cwd.
func prompt(target, cwd string) string {
	if cwd == "" {
		cwd = "/"
	}
	return target + ":" + cwd + "> "
}
