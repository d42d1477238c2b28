package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nlowe/airqtt/setup"
)

var labels = map[string]string{
	setup.FieldAddress:  "IP address",
	setup.FieldPassword: "Password",
}

var messages = map[string]string{
	setup.ErrorCannotConnect:     "Failed to connect",
	setup.ErrorInvalidAuth:       "Invalid authentication",
	setup.ErrorUnknown:           "Unexpected error",
	setup.ErrorRequired:          "Required",
	setup.AbortAlreadyConfigured: "Device is already configured",
}

func message(code string) string {
	if m, ok := messages[code]; ok {
		return m
	}

	return code
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}

	return field
}

// describeErrors renders the errors of a form result, base errors first.
func describeErrors(errs map[string]string) string {
	var lines []string
	if base, ok := errs[setup.ErrorBase]; ok {
		lines = append(lines, message(base))
	}

	for _, f := range slices.Sorted(maps.Keys(errs)) {
		if f == setup.ErrorBase {
			continue
		}

		lines = append(lines, fmt.Sprintf("%s: %s", label(f), message(errs[f])))
	}

	return strings.Join(lines, "\n")
}

// prompt asks for every field of schema, keeping what was entered before.
func prompt(schema setup.Schema, values map[string]string, problem string) error {
	fields := make([]huh.Field, 0, len(schema)+1)
	if problem != "" {
		fields = append(fields, huh.NewNote().Title("Could not add the device").Description(problem))
	}

	ptrs := make(map[string]*string, len(schema))
	for _, f := range schema {
		v := values[f.Name]
		ptrs[f.Name] = &v

		in := huh.NewInput().Title(label(f.Name)).Value(ptrs[f.Name])
		if f.Secret {
			in = in.EchoMode(huh.EchoModePassword)
		}
		if f.Required {
			name := label(f.Name)
			in = in.Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("%s is required", name)
				}

				return nil
			})
		}

		fields = append(fields, in)
	}

	if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
		return err
	}

	for name, v := range ptrs {
		values[name] = strings.TrimSpace(*v)
	}

	return nil
}

func newSetupCommand() *cobra.Command {
	var address, password string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Add an air-Q device",
		Long: `Add an air-Q device by its address and password.

The device is contacted to verify the password and read its id. Without --address and --password an interactive form
is shown and re-shown until the device is added or the form is cancelled.`,
		Example: `  airqtt setup
  airqtt setup --address 192.168.0.42 --password airqsetup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, store, err := openStore(cmd)
			if err != nil {
				return err
			}

			flow := setup.NewFlow(store, nil)
			interactive := address == "" || password == ""

			res, err := flow.StepUser(cmd.Context(), nil)
			if err != nil {
				return err
			}

			values := map[string]string{setup.FieldAddress: address, setup.FieldPassword: password}
			problem := ""
			for res.Type == setup.ResultForm {
				if interactive {
					if err = prompt(res.Schema, values, problem); err != nil {
						if errors.Is(err, huh.ErrUserAborted) {
							return nil
						}

						return err
					}
				}

				if res, err = flow.StepUser(cmd.Context(), values); err != nil {
					return err
				}

				if res.Type == setup.ResultForm {
					problem = describeErrors(res.Errors)
					if !interactive {
						return errors.New(problem)
					}
				}
			}

			switch res.Type {
			case setup.ResultAbort:
				return errors.New(message(res.Reason))
			case setup.ResultCreateEntry:
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as entry %s\n", res.Entry.Title, res.Entry.UniqueID, res.Entry.EntryID)
				return err
			default:
				return fmt.Errorf("unexpected setup result %q", res.Type)
			}
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "IP address or hostname of the device")
	cmd.Flags().StringVar(&password, "password", "", "Device password")

	return cmd
}
