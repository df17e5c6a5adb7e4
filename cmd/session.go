package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func (a *app) withRuntime(cmd *cobra.Command, fn func(rt *runtime, printer *toastPrinter) error) error {
	printer := &toastPrinter{w: cmd.ErrOrStderr()}

	rt, err := a.openRuntime(cmd.Context(), runtimeOptions{
		prompter: newTerminalPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
		onToast:  printer.print,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(rt, printer)
}

// runTracked runs work behind a spinner when stderr is a terminal and plainly otherwise.
func runTracked(cmd *cobra.Command, printer *toastPrinter, label string, work func(context.Context) error) error {
	out := cmd.ErrOrStderr()
	if !isTerminal(out) {
		return work(cmd.Context())
	}

	printer.hold()
	defer printer.release()

	return runWithSpinner(cmd.Context(), out, label, work)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
