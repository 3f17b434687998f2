// shopwise serves conversational product search over SSE, NDJSON, A2A and MCP.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run parses args and runs the selected command. It returns 2 for usage
// errors and 1 when the command fails.
func run(args []string, out io.Writer) int {
	cli := CLI{}
	exited := -1

	parser, err := kong.New(&cli,
		kong.Name("shopwise"),
		kong.Description("Conversational product search backed by a streaming chat model"),
		kong.Writers(out, out),
		// --help asks kong to exit; record the code instead so tests can run it.
		kong.Exit(func(code int) { exited = code }),
		kong.BindTo(out, (*io.Writer)(nil)),
	)
	if err != nil {
		fmt.Fprintf(out, "shopwise: %v\n", err) //nolint:errcheck
		return 1
	}

	ctx, err := parser.Parse(args)
	if exited >= 0 {
		return exited
	}
	if err != nil {
		fmt.Fprintf(out, "shopwise: %v\n", err) //nolint:errcheck
		return 2
	}

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(out, "shopwise: %v\n", err) //nolint:errcheck
		return 1
	}
	return 0
}
