// Command-line interface to a tomocat catalog.
// Provides resolve, copy, move, delete, and sync over the merged
// static/overlay namespace described by a TOML configuration file.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tomoverse/tomocat/batch"
	"github.com/tomoverse/tomocat/catalog"
	"github.com/tomoverse/tomocat/config"
	"github.com/tomoverse/tomocat/storage"
	_ "github.com/tomoverse/tomocat/storage/badgerstore"
	_ "github.com/tomoverse/tomocat/storage/filestore"
	_ "github.com/tomoverse/tomocat/storage/memstore"
	_ "github.com/tomoverse/tomocat/storage/swiftstore"
	"github.com/tomoverse/tomocat/tomo"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// Path to the catalog configuration file.
	configFile = flag.String("config", "tomocat.toml", "")

	// Scope an operation to one run.
	runName = flag.String("run", "", "")

	// Number of concurrent workers for sync.
	numWorkers = flag.Int("workers", 1, "")

	// Report what would be mutated without mutating.
	dryRun = flag.Bool("dryrun", false, "")

	// Allow mutations to replace existing target entities.
	overwrite = flag.Bool("overwrite", false, "")
)

const helpMessage = `
tomocat is a command-line interface to a dual-source scientific imaging catalog

Usage: tomocat [options] <command>

      -config     =string   Path to TOML catalog configuration (default "tomocat.toml").
      -run        =string   Scope the operation to one run.
      -workers    =number   Concurrent workers for sync (default 1).
      -dryrun     (flag)    Report matches without mutating (delete only).
      -overwrite  (flag)    Replace existing target entities.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	runs
	stats
	resolve <entity type> <uri>
	delete  <entity type> <uri>
	copy    <entity type> <source uri> <target uri>
	move    <entity type> <source uri> <target uri>
	sync    <entity type> <uri> <target config file>

Entity types: picks, mesh, segmentation, volume, featuremap.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		tomo.Verbose = true
		tomo.SetLogMode(tomo.DebugMode)
	}
	defer tomo.Shutdown()

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := strings.ToLower(args[0])
	switch command {
	case "help":
		flag.Usage()
		return nil
	case "about":
		fmt.Printf("tomocat catalog tool\nEnabled storage engines: %s\n",
			strings.Join(storage.EnabledEngines(), ", "))
		return nil
	}

	c, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	root, err := c.OpenRoot()
	if err != nil {
		return err
	}
	defer root.Close()

	switch command {
	case "runs":
		return listRuns(root)
	case "stats":
		return showStats(root)
	case "resolve":
		if len(args) != 3 {
			return fmt.Errorf("usage: tomocat resolve <entity type> <uri>")
		}
		return resolve(root, args[1], args[2])
	case "delete":
		if len(args) != 3 {
			return fmt.Errorf("usage: tomocat delete <entity type> <uri>")
		}
		return deleteEntities(root, args[1], args[2])
	case "copy", "move":
		if len(args) != 4 {
			return fmt.Errorf("usage: tomocat %s <entity type> <source uri> <target uri>", command)
		}
		return copyOrMove(root, command, args[1], args[2], args[3])
	case "sync":
		if len(args) != 4 {
			return fmt.Errorf("usage: tomocat sync <entity type> <uri> <target config file>")
		}
		return sync(root, args[1], args[2], args[3])
	default:
		return fmt.Errorf("unknown command %q; try \"tomocat help\"", command)
	}
}

func listRuns(root *catalog.Root) error {
	runs, err := root.Runs()
	if err != nil {
		return err
	}
	for _, run := range runs {
		marker := " "
		if run.ReadOnly() {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, run.Name())
	}
	fmt.Printf("%d runs (* published/read-only)\n", len(runs))
	return nil
}

func showStats(root *catalog.Root) error {
	runs, err := root.Runs()
	if err != nil {
		return err
	}
	report := batch.MapRuns(context.Background(), runs, *numWorkers, *runVerbose,
		func(ctx context.Context, run *catalog.Run) (interface{}, error) {
			return run.Stats()
		})
	for _, run := range runs {
		result := report.Results[run.Name()]
		if result.Err != nil {
			fmt.Printf("run %q: %v\n", run.Name(), result.Err)
			continue
		}
		fmt.Println(result.Value)
	}
	return nil
}

func resolve(root *catalog.Root, kindStr, uriStr string) error {
	kind, err := storage.KindFromString(kindStr)
	if err != nil {
		return err
	}
	matches, err := root.Resolve(kind, uriStr, *runName)
	if err != nil {
		return err
	}
	for _, e := range matches {
		serialized, err := e.URI()
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", e.RunName(), serialized)
	}
	fmt.Printf("%d matches\n", len(matches))
	return nil
}

func deleteEntities(root *catalog.Root, kindStr, uriStr string) error {
	kind, err := storage.KindFromString(kindStr)
	if err != nil {
		return err
	}
	result, err := batch.Delete(root, kind, uriStr, *runName, *dryRun)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func copyOrMove(root *catalog.Root, command, kindStr, srcURI, dstURI string) error {
	kind, err := storage.KindFromString(kindStr)
	if err != nil {
		return err
	}
	var result *batch.MutationResult
	if command == "copy" {
		result, err = batch.Copy(root, kind, srcURI, dstURI, *runName, *overwrite)
	} else {
		result, err = batch.Move(root, kind, srcURI, dstURI, *runName, *overwrite)
	}
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func sync(root *catalog.Root, kindStr, uriStr, targetConfig string) error {
	kind, err := storage.KindFromString(kindStr)
	if err != nil {
		return err
	}
	tc, err := config.Load(targetConfig)
	if err != nil {
		return err
	}
	target, err := tc.OpenRoot()
	if err != nil {
		return err
	}
	defer target.Close()

	report, err := batch.Sync(context.Background(), root, target, kind, uriStr,
		*numWorkers, *overwrite, *runVerbose)
	if err != nil {
		return err
	}
	for name, result := range report.Results {
		if result.Err != nil {
			fmt.Printf("run %q: %v\n", name, result.Err)
			continue
		}
		if mutation, ok := result.Value.(*batch.MutationResult); ok {
			fmt.Printf("run %q: %s\n", name, mutation)
			for _, itemErr := range mutation.Errors {
				fmt.Printf("  failed %s\n", itemErr)
			}
		}
	}
	fmt.Printf("%d runs synced, %d failed\n", report.Succeeded, report.Failed)
	return nil
}

func printResult(result *batch.MutationResult) {
	for _, serialized := range result.Affected {
		fmt.Println(serialized)
	}
	for _, itemErr := range result.Errors {
		fmt.Printf("failed %s\n", itemErr)
	}
	fmt.Println(result)
}
