package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kong"
)

// CLI is the command grammar.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run tasks and record the files each one read and wrote."`
	Inspect InspectCmd `cmd:"" help:"Print the recorded files of a previous run."`
}

// Result is the outcome of one CLI invocation.
type Result struct {
	ExitCode int
	RunID    string
}

// runtime is bound into every command's Run method.
type runtime struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	result Result
}

type exitSignal struct{ code int }

// Run parses args (excluding argv[0]) and executes the selected command.
// It never calls os.Exit; the semantic exit code is returned in Result.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) (res Result, err error) {
	var grammar CLI
	parser, err := kong.New(&grammar,
		kong.Name("taskfiles"),
		kong.Description("Track the input and output files of build tasks."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { panic(exitSignal{code: code}) }),
	)
	if err != nil {
		return Result{ExitCode: ExitInternalError}, err
	}

	// --help prints usage and asks kong to exit.
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		sig, ok := r.(exitSignal)
		if !ok {
			panic(r)
		}
		res, err = Result{ExitCode: sig.code}, nil
		if sig.code != ExitSuccess {
			err = &InvocationError{ExitCode: sig.code, Message: "usage error"}
		}
	}()

	kctx, err := parser.Parse(args)
	if err != nil {
		err = invalidInvocationf("%v", err)
		return Result{ExitCode: ExitCode(err)}, err
	}

	rt := &runtime{ctx: ctx, stdout: stdout, stderr: stderr}
	if err := kctx.Run(rt); err != nil {
		rt.result.ExitCode = ExitCode(err)
		return rt.result, err
	}
	rt.result.ExitCode = ExitSuccess
	return rt.result, nil
}
