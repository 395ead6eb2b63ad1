package cmd

import (
	"fmt"

	"github.com/nibzard/kanban-go/internal/config"
)

// configCommand prints the effective configuration and where each value
// came from, or an example kanban.toml with -example.
func (c *cli) configCommand(cfg *config.Config, args []string) error {
	fs := newFlagSet(c, "config")
	example := fs.Bool("example", false, "Print an example kanban.toml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *example {
		fmt.Fprint(c.out, config.ExampleConfig())
		return nil
	}

	if cfg.ConfigFile != "" {
		fmt.Fprintf(c.out, "# config file: %s\n", cfg.ConfigFile)
	} else {
		fmt.Fprintln(c.out, "# no config file found")
	}
	fmt.Fprintf(c.out, "# project root: %s\n", cfg.ProjectRoot)
	values := cfg.Values()
	for _, key := range config.Fields() {
		fmt.Fprintf(c.out, "%-15s = %-30s # %s\n", key, values[key], cfg.Source(key))
	}
	return nil
}
