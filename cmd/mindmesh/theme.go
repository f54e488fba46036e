package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errBadTheme = errors.New(`theme must be "dark", "light" or "toggle"`)

func themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the saved theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			theme := newApp(cfg).theme

			if len(args) == 1 {
				switch args[0] {
				case "dark":
					err = theme.SetDark(true)
				case "light":
					err = theme.SetDark(false)
				case "toggle":
					_, err = theme.Toggle()
				default:
					return errBadTheme
				}
				if err != nil {
					return err
				}
			}

			name := "light"
			if theme.Dark() {
				name = "dark"
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
