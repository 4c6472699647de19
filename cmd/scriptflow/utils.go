package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/utils"
)

// readInput returns the contents of the file named by args[0], or stdin when
// there is no argument or it is "-".
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(args[0])
}

// printJSON writes v as indented JSON to the user output.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", constants.JSONIndent)
	if err != nil {
		return err
	}
	utils.User("%s", b)
	return nil
}

// fail logs err and exits with code.
func fail(code int, format string, v ...any) {
	utils.Error(format, v...)
	exit(code)
}
