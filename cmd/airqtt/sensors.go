package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nlowe/airqtt/sensor"
)

func newSensorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sensors",
		Short: "List the sensors airqtt knows how to publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCatalog(cmd.OutOrStdout(), sensor.Catalog)
		},
	}
}

func printCatalog(w io.Writer, catalog []sensor.Description) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, err := fmt.Fprintln(tw, "KEY\tNAME\tUNIT\tDEVICE CLASS")
	for _, d := range catalog {
		_, ferr := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Key, d.Name, d.Unit, orDash(string(d.DeviceClass)))
		err = errors.Join(err, ferr)
	}

	return errors.Join(err, tw.Flush())
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
