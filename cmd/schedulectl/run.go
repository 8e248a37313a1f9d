package main

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// errInfeasible makes solve exit with code 2 when --fail-infeasible is set.
var errInfeasible = errors.New("batch is infeasible")

func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(Version, stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err.Error())
		if errors.Is(err, errInfeasible) {
			return 2
		}
		return 1
	}
	return 0
}
