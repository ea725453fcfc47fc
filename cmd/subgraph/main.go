package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	subgraph "github.com/hanpama/subgraph"
	"github.com/hanpama/subgraph/internal/composition"
	"github.com/hanpama/subgraph/internal/eventbus"
	"github.com/hanpama/subgraph/internal/otel"
)

const rootUsage = `subgraph — federation subgraph tools

USAGE:
  subgraph <command> [flags]

COMMANDS:
  serve       Serve a schema as a stub subgraph (no resolvers attached)
  print-sdl   Print the federated SDL a schema would expose at _service
  check       Compose subgraph SDL files and report conflicts
  help        Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema <file>                SDL file with @key declarations (required)
  -graphql.introspection <bool> Enable GraphQL introspection (default: true)
  -server.addr <addr>           HTTP listen address (default: :8080)
  -server.pretty                Pretty-print JSON responses
  -server.timeout <duration>    Per-request timeout, e.g. 10s (default: 10s)
  -server.forward-header <name> Forward HTTP header into resolver context. Repeatable
  -server.cors-origin <origin>  Allowed CORS origin. Repeatable
  -otel.endpoint <addr>         OTLP collector endpoint
  -otel.service <name>          OpenTelemetry service name (default: subgraph)
`

const printSDLUsage = `print-sdl FLAGS:
  -schema <file>  SDL file with @key declarations (required)
  -out <file>     Write federated SDL to file (default: stdout)
`

const checkUsage = `check USAGE:
  subgraph check <name=file> [<name=file> ...]

  Parses each subgraph SDL file, validates its @key declarations, and
  composes them. Exits non-zero on composition conflicts.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("subgraph", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "print-sdl":
		return cmdPrintSDL(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "print-sdl":
		fmt.Print(printSDLUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func cmdServe(args []string) error {
	schemaFile := ""
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	enableIntrospection := true
	otelEndpoint := ""
	otelService := "subgraph"
	var forwardHeaders stringListFlag
	var corsOrigins stringListFlag

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "SDL file")
	fs.BoolVar(&enableIntrospection, "graphql.introspection", enableIntrospection, "Enable GraphQL introspection")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Var(&forwardHeaders, "server.forward-header", "Forward HTTP header into resolver context")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema is required")
	}

	sdl, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}

	sub, err := subgraph.New(subgraph.Config{
		SDL:                  string(sdl),
		DisableIntrospection: !enableIntrospection,
	})
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	var sopts []subgraph.ServerOption
	if pretty {
		sopts = append(sopts, subgraph.WithPretty())
	}
	if timeout > 0 {
		sopts = append(sopts, subgraph.WithTimeout(timeout))
	}
	if len(forwardHeaders) > 0 {
		sopts = append(sopts, subgraph.WithForwardHeaders(forwardHeaders...))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, subgraph.WithCORS(corsOrigins...))
	}
	h, err := sub.Handler(sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("subgraph listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func cmdPrintSDL(args []string) error {
	schemaFile := ""
	outFile := ""
	fs := flag.NewFlagSet("print-sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "SDL file")
	fs.StringVar(&outFile, "out", outFile, "Write federated SDL to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, printSDLUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, printSDLUsage)
		return fmt.Errorf("-schema is required")
	}

	sdl, err := os.ReadFile(schemaFile)
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	sub, err := subgraph.New(subgraph.Config{SDL: string(sdl)})
	if err != nil {
		return err
	}
	if outFile == "" {
		fmt.Print(sub.SDL())
		return nil
	}
	return os.WriteFile(outFile, []byte(sub.SDL()), 0644)
}

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	specs := fs.Args()
	if len(specs) == 0 {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("at least one <name=file> argument is required")
	}

	var subs []*composition.Subgraph
	for _, spec := range specs {
		parts := strings.SplitN(spec, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return fmt.Errorf("invalid argument %q, want <name=file>", spec)
		}
		sdl, err := os.ReadFile(parts[1])
		if err != nil {
			return fmt.Errorf("read %s: %w", parts[1], err)
		}
		sub, err := composition.ParseSubgraph(parts[0], string(sdl))
		if err != nil {
			return err
		}
		subs = append(subs, sub)
	}

	super, err := composition.Compose(subs...)
	if err != nil {
		return err
	}

	entities := 0
	for _, t := range super.Types {
		if len(t.Keys) > 0 {
			entities++
		}
	}
	fmt.Printf("composed %d subgraphs: %d types, %d entities\n", len(subs), len(super.Types), entities)
	return nil
}
