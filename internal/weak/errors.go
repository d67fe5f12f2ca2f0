package weak

import "github.com/janpfeifer/multiboost/internal/boosterr"

func errUnregistered(name string) error {
	return boosterr.NewLoad("unregistered weak learner name %q", name)
}
