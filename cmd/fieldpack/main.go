// Command fieldpack compresses time-varying vector fields into block-compressed
// image volumes and plans streamed particle tracing over them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
)

const helpMessage = `
fieldpack packs vector fields into half-float images, block-compresses them and
stores the result as a volume in a local directory, S3 or MinIO.

Usage: fieldpack <command> [options] args

Commands:

	compress    [-append] <raw-file> <name>     Compress a raw float32 field
	decompress  <name> <raw-file>               Reconstruct the raw field
	info        [-images] <name>                Describe a stored volume
	plan        -steps G -dt d [-timesize s] [-slices T | <name>]
	                                            Split an integration into passes
	trace       -steps G -dt d [-timesize s] [-seeds n] [-v] <name>
	                                            Dry-run the streamed schedule

Every command accepts:

	-config     =string   TOML config file (store, grid, pack, codec, stream, logging)
	-h, -help   (flag)    Show help message
`

var errUsage = errors.New("usage")

type command struct {
	run func(ctx context.Context, env *env, args []string) error
}

var commands = map[string]command{
	"compress":   {runCompress},
	"decompress": {runDecompress},
	"info":       {runInfo},
	"plan":       {runPlan},
	"trace":      {runTrace},
}

// env carries the process streams into the commands.
type env struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "fieldpack: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "help" {
		fmt.Fprint(stderr, helpMessage)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		names := make([]string, 0, len(commands))
		for n := range commands {
			names = append(names, n)
		}
		sort.Strings(names)
		fmt.Fprintf(stderr, "unknown command %q, expected one of %v\n", args[0], names)
		return errUsage
	}
	return cmd.run(ctx, &env{stdout: stdout, stderr: stderr}, args[1:])
}

func (e *env) flagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() { fmt.Fprint(e.stderr, helpMessage) }
	return fs, fs.String("config", "", "TOML config file")
}

// parse parses args and checks the number of positional arguments.
func parse(fs *flag.FlagSet, args []string, minArgs, maxArgs int) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if n := fs.NArg(); n < minArgs || n > maxArgs {
		fs.Usage()
		return errUsage
	}
	return nil
}
