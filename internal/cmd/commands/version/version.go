package version

import (
	"github.com/edforge/trellis/internal/cmd/base"
	buildversion "github.com/edforge/trellis/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the version"
}

func (c *Command) Help() string {
	return "Usage: trellis version"
}

func (c *Command) Run(args []string) int {
	c.UI.Output(buildversion.Version)
	return 0
}
