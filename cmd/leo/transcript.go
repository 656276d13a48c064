package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comigor/leo-go/internal/config"
	"github.com/comigor/leo-go/internal/history"
)

var transcriptCmd = &cobra.Command{
	Use:   "transcript",
	Short: "Inspect or reset a user's stored conversation",
}

var transcriptShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Print the stored conversation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := cliStore(cmd)
		if err != nil {
			return err
		}
		defer closer()

		turns, err := store.Load(cmd.Context(), args[0])
		if errors.Is(err, history.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "no conversation stored for %s\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		data, err := history.Encode(turns)
		if err != nil {
			return err
		}
		var pretty any
		if err := json.Unmarshal(data, &pretty); err != nil {
			return err
		}
		out, err := json.MarshalIndent(pretty, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var transcriptResetCmd = &cobra.Command{
	Use:   "reset <user-id>",
	Short: "Clear the stored conversation; the next sign-in starts from the greeting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closer, err := cliStore(cmd)
		if err != nil {
			return err
		}
		defer closer()

		if err := store.Save(cmd.Context(), args[0], nil); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "conversation for %s reset\n", args[0])
		return nil
	},
}

func init() {
	transcriptCmd.AddCommand(transcriptShowCmd)
	transcriptCmd.AddCommand(transcriptResetCmd)
}

func cliStore(cmd *cobra.Command) (history.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	store, closer, err := openStore(cmd.Context(), cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = closer.Close() }, nil
}
