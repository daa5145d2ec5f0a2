// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Roll back every migration and apply them again, deleting all links and settings",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config file from the template",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand handles Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify in the browser and store the tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the stored token and the active device",
				Action: r.AuthStatus,
			},
		},
	}
}

// linksCommand handles link management
func linksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "links",
		Aliases: []string{"link", "l"},
		Usage:   "Manage links between tracks",
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Link two tracks by playing them in order",
				Action: r.LinksAdd,
			},
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List links",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Only show links whose trigger or target name contains this text",
					},
				},
				Action: r.LinksList,
			},
			{
				Name:    "remove",
				Aliases: []string{"rm"},
				Usage:   "Remove the link for a trigger track id",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "trigger-id",
					},
				},
				Action: r.LinksRemove,
			},
			{
				Name:  "export",
				Usage: "Export links to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format (csv, md, txt, json)",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: links.<format>)",
					},
				},
				Action: r.LinksExport,
			},
		},
	}
}

// settingsCommand handles stored preferences
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change preferences",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show preferences",
				Action: r.SettingsShow,
			},
			{
				Name:  "set",
				Usage: "Change preferences",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reverse",
						Usage: "Also queue a link's trigger when its target plays",
					},
				},
				Action: r.SettingsSet,
			},
		},
	}
}

// watchCommand returns the top-level command that runs the monitor.
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"run"},
		Usage:   "Watch playback and queue linked tracks",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show the interactive dashboard",
			},
		},
		Action: r.Watch,
	}
}
