// Package runner executes external commands for the build front end.
//
// A [Runner] has two modes. [Runner.Run] streams the child's output to the
// configured writers and only checks the exit status. [Runner.Output]
// captures standard output and returns it as text.
//
// Both modes share one failure contract. Buffered output is flushed before
// the child starts so diagnostics never interleave. When a command fails,
// the joined command line is printed once as a diagnostic unless it was
// already echoed. A failure to start, or a non-zero exit in capture mode,
// is returned wrapped so the original error stays reachable through
// errors.As. A non-zero exit in run mode becomes a PROCESS_FAILED
// [failure.Error] carrying the exit status.
//
// Example usage:
//
//	r := runner.New()
//	version, err := r.Output(ctx, "gcc", "-dumpversion")
//	if err != nil {
//	    return err
//	}
//
//	r.Env = env.Environ()
//	r.Echo = true
//	if err := r.Run(ctx, "build", "-b", "DEBUG"); err != nil {
//	    return err
//	}
package runner
