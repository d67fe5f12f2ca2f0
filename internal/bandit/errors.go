package bandit

import "github.com/janpfeifer/multiboost/internal/boosterr"

func errUnregistered(name string) error {
	return boosterr.NewLoad("unregistered bandit algorithm name %q", name)
}
