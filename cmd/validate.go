/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-bootserial/internal/tui/styles"
	"github.com/allbin/go-bootserial/reset"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <sequence>",
	Short: "Check a custom reset sequence without opening a port",
	Long: `Check that a custom reset sequence is well formed and print the
commands it runs. Exits with status 1 when the sequence is invalid.

Examples:
  bootserial validate 'D0|R1|S|W100|D1|R0|S|W50|D0|S'
  bootserial validate 'R0|X1'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		seq, err := reset.Parse(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", styles.ErrorStyle.Render("✗"), err)
			var syntaxErr *reset.SyntaxError
			if errors.As(err, &syntaxErr) {
				fmt.Fprintf(os.Stderr, "  %s\n", markCommand(args[0], syntaxErr.Index))
			}
			os.Exit(1)
		}

		fmt.Printf("%s valid sequence, %d commands\n", styles.SuccessStyle.Render("✓"), len(seq))
		for i, c := range seq {
			fmt.Printf("  %s %s\n", styles.LabelStyle.Render(fmt.Sprintf("%2d", i+1)), c)
		}
	},
}

// markCommand renders sequence with the command at index highlighted
func markCommand(sequence string, index int) string {
	tokens := strings.Split(sequence, reset.Separator)
	if index >= 0 && index < len(tokens) {
		token := tokens[index]
		if token == "" {
			token = "∅"
		}
		tokens[index] = styles.ErrorStyle.Render(token)
	}
	return strings.Join(tokens, reset.Separator)
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
