// Command kamarosctl is an example driver over the project package: it
// wires a Manager to a filesystem-backed storage.Adapter and exposes the
// working-set, checkpoint, restore, and history operations as
// subcommands. It is a thin demo, not part of the core engine (spec §6).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"kamaros/historyindex"
	"kamaros/project"
	"kamaros/storage"
)

var manager *project.Manager

const manifestKey = "manifest.json"

// openManager attaches a fresh Manager to the filesystem adapter rooted at
// root, and reattaches it to whatever project a prior invocation left
// behind (the working set itself is process-local and does not survive
// between runs, per the model in spec §5 and §3 "Working Set"). When
// indexPath is non-empty, a SQLite history index (SPEC_FULL §B) is opened
// and attached so tag/version lookups can use it instead of a linear scan.
func openManager(root, indexPath string) error {
	adapter, err := storage.NewFileAdapter(root)
	if err != nil {
		return fmt.Errorf("creating project root: %w", err)
	}
	manager = project.New(adapter)
	if err := manager.Reload(context.Background(), manifestKey); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	if indexPath != "" {
		idx, err := historyindex.Open(indexPath, historyindex.Options{})
		if err != nil {
			return fmt.Errorf("opening history index: %w", err)
		}
		manager.AttachHistoryIndex(idx)
	}
	return nil
}

// persistManager writes the current manifest back so the next invocation
// can Reload it. It is a no-op if no project is loaded (e.g. before init).
func persistManager() error {
	if err := manager.Persist(context.Background(), manifestKey); err != nil {
		if errors.Is(err, project.ErrNoProject) {
			return nil
		}
		return err
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "kamarosctl",
		Usage: "drive a kamaros project from the command line",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Value:   ".kamaros",
				Usage:   "project storage directory",
				EnvVars: []string{"KAMAROS_ROOT"},
			},
			&cli.StringFlag{
				Name:    "index",
				Usage:   "path to an optional SQLite history index for fast id/tag lookup",
				EnvVars: []string{"KAMAROS_INDEX"},
			},
		},
		Before: func(c *cli.Context) error {
			return openManager(c.String("root"), c.String("index"))
		},
		After: func(c *cli.Context) error {
			return persistManager()
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create a new project",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "author"},
				},
				Action: func(c *cli.Context) error {
					manager.CreateProject(c.String("name"), c.String("description"), c.String("author"))
					fmt.Printf("initialized project %q\n", c.String("name"))
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "stage a file's bytes in the working set",
				ArgsUsage: "<path> <file>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: add <path> <file>", 1)
					}
					content, err := os.ReadFile(c.Args().Get(1))
					if err != nil {
						return err
					}
					if err := manager.AddFile(c.Args().Get(0), content); err != nil {
						return err
					}
					fmt.Printf("staged %s\n", c.Args().Get(0))
					return nil
				},
			},
			{
				Name:      "rm",
				Usage:     "remove a path from the working set",
				ArgsUsage: "<path>",
				Action: func(c *cli.Context) error {
					removed, err := manager.DeleteFile(c.Args().Get(0))
					if err != nil {
						return err
					}
					fmt.Println(removed)
					return nil
				},
			},
			{
				Name:      "mv",
				Usage:     "rename a staged path",
				ArgsUsage: "<old> <new>",
				Action: func(c *cli.Context) error {
					ok, err := manager.RenameFile(c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Println(ok)
					return nil
				},
			},
			{
				Name:  "ls",
				Usage: "list paths in the working set",
				Action: func(c *cli.Context) error {
					paths, err := manager.ListFiles()
					if err != nil {
						return err
					}
					for _, p := range paths {
						fmt.Println(p)
					}
					return nil
				},
			},
			{
				Name:  "checkpoint",
				Usage: "commit the working set as a new version",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "message", Aliases: []string{"m"}},
					&cli.StringFlag{Name: "author"},
				},
				Action: func(c *cli.Context) error {
					id, err := manager.SaveCheckpoint(context.Background(), c.String("message"), c.String("author"))
					if err != nil {
						return err
					}
					fmt.Println(id)
					return nil
				},
			},
			{
				Name:      "restore",
				Usage:     "move the working set to a prior version",
				ArgsUsage: "<version-id>",
				Action: func(c *cli.Context) error {
					id, err := manager.RestoreVersion(context.Background(), c.Args().Get(0))
					if err != nil {
						return err
					}
					fmt.Println(id)
					return nil
				},
			},
			{
				Name:      "tag",
				Usage:     "bind a human-readable name to a version",
				ArgsUsage: "<version-id> <name>",
				Action: func(c *cli.Context) error {
					ok, err := manager.TagVersion(context.Background(), c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return err
					}
					fmt.Println(ok)
					return nil
				},
			},
			{
				Name:      "lookup",
				Usage:     "resolve a version id or, with --tag, a tag name (uses the history index when --index is set)",
				ArgsUsage: "<version-id-or-tag>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "tag", Usage: "resolve a tag name instead of a version id"},
				},
				Action: func(c *cli.Context) error {
					ctx := context.Background()
					if c.Bool("tag") {
						id, found, err := manager.LookupVersionByTag(ctx, c.Args().Get(0))
						if err != nil {
							return err
						}
						if !found {
							return cli.Exit("tag not found", 1)
						}
						fmt.Println(id)
						return nil
					}
					summary, found, err := manager.LookupVersionByID(ctx, c.Args().Get(0))
					if err != nil {
						return err
					}
					if !found {
						return cli.Exit("version not found", 1)
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(summary)
				},
			},
			{
				Name:  "log",
				Usage: "print the version history as JSON",
				Action: func(c *cli.Context) error {
					mf := manager.Manifest()
					if mf == nil {
						return project.ErrNoProject
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(mf.VersionHistory)
				},
			},
			{
				Name:  "verify",
				Usage: "verify blob integrity across all of history",
				Action: func(c *cli.Context) error {
					report, err := manager.VerifyIntegrity(context.Background())
					if err != nil {
						return err
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				},
			},
			{
				Name:      "save",
				Usage:     "write a portable archive",
				ArgsUsage: "<archive-path>",
				Action: func(c *cli.Context) error {
					path := c.Args().Get(0)
					if err := manager.Save(context.Background(), path); err != nil {
						return err
					}
					fmt.Printf("wrote archive %s under the project root\n", path)
					return nil
				},
			},
			{
				Name:      "load",
				Usage:     "load a portable archive, replacing the current project",
				ArgsUsage: "<archive-path>",
				Action: func(c *cli.Context) error {
					return manager.Load(context.Background(), c.Args().Get(0))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
