// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, mixesCommand, selectCommand, syncCommand, statusCommand, configCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand creates the config file and initializes storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config file and initialize storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles provider authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Tidal authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Link a Tidal account using the device flow",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check current authentication state",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Discard stored Tidal credentials",
				Action: r.AuthLogout,
			},
		},
	}
}

// mixesCommand lists the resolved mix catalog.
func mixesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mixes",
		Usage: "List available Tidal mixes",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Mixes,
	}
}

// selectCommand manages which mixes are synced.
func selectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "select",
		Aliases: []string{"ui"},
		Usage:   "Choose which mixes to snapshot (interactive without flags)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ids",
				Usage: "Comma-separated mix IDs (skips the interactive UI)",
			},
			&cli.IntFlag{
				Name:  "retention",
				Usage: "Days to keep snapshots before pruning",
			},
		},
		Action: r.Select,
	}
}

// syncCommand runs one snapshot-and-prune cycle.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Snapshot selected mixes and prune expired snapshots",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output the report as raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
		},
		Action: r.Sync,
	}
}

// statusCommand prints the durable status record.
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the last sync report",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Status,
	}
}

// configCommand shows or updates the sync parameters.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage sync parameters",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the current selection config",
				Action: r.ConfigShow,
			},
			{
				Name:  "set",
				Usage: "Update retention or the web PIN",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "retention",
						Usage: "Days to keep snapshots before pruning",
					},
					&cli.StringFlag{
						Name:  "pin",
						Usage: "Web access PIN (empty string clears it)",
					},
				},
				Action: r.ConfigSet,
			},
		},
	}
}

// serveCommand runs the web service with the daily scheduler.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web service and daily scheduler",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides config)",
			},
		},
		Action: r.Serve,
	}
}
