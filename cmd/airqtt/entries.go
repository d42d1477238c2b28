package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nlowe/airqtt/entry"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List configured devices",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(cmd)
			if err != nil {
				return err
			}

			return printEntries(cmd.OutOrStdout(), store.All())
		},
	}
}

func printEntries(w io.Writer, entries []entry.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No devices configured. Add one with \"airqtt setup\".")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, err := fmt.Fprintln(tw, "ENTRY\tTITLE\tDEVICE\tADDRESS\tADDED")
	for _, e := range entries {
		_, ferr := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.EntryID, e.Title, e.UniqueID, e.Address(), e.CreatedAt.Local().Format("2006-01-02 15:04"))
		err = errors.Join(err, ferr)
	}

	return errors.Join(err, tw.Flush())
}

func newRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <entry id | device id>",
		Aliases: []string{"rm"},
		Short:   "Remove a configured device",
		Long: `Remove a configured device by its entry id or device id.

A running bridge notices the change and removes the device from Home Assistant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := openStore(cmd)
			if err != nil {
				return err
			}

			removed, err := removeEntry(store, args[0])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", removed.Title, removed.EntryID)
			return err
		},
	}
}

func removeEntry(store *entry.Store, id string) (entry.Entry, error) {
	if _, err := store.Get(id); errors.Is(err, entry.ErrNotFound) {
		e, err := store.ByUniqueID(id)
		if err != nil {
			return entry.Entry{}, fmt.Errorf("%s: %w", id, err)
		}

		id = e.EntryID
	}

	return store.Remove(id)
}
