package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"ibconn/internal/message"
)

var showFields bool

// typesCmd lists the message types of the default registry
var typesCmd = &cobra.Command{
	Use:   "types [filter]",
	Short: "List message types",
	Long:  "Lists every message type name, optionally only those containing the filter, with their fields.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		return listTypes(cmd.OutOrStdout(), message.Default(), filter, showFields)
	},
}

func init() {
	rootCmd.AddCommand(typesCmd)
	typesCmd.Flags().BoolVarP(&showFields, "fields", "f", false, "show the fields of each type")
}

func listTypes(w io.Writer, reg *message.Registry, filter string, fields bool) error {
	filter = strings.ToLower(filter)
	for _, name := range reg.TypeNames() {
		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			continue
		}
		if !fields {
			if _, err := fmt.Fprintln(w, name); err != nil {
				return err
			}
			continue
		}

		t, _ := reg.Lookup(name)
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = f.Name + " " + f.GoType
		}
		if _, err := fmt.Fprintf(w, "%s(%s)\n", name, strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	return nil
}
