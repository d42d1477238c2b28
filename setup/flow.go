// Package setup implements the setup wizard that turns a device address and password into a configuration entry.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/nlowe/airqtt/airq"
	"github.com/nlowe/airqtt/entry"
	"github.com/nlowe/airqtt/log"
)

// StepUser is the id of the only form step.
const StepUser = "user"

// Form fields.
const (
	FieldAddress  = entry.DataAddress
	FieldPassword = entry.DataPassword
)

// ErrorBase is the Result.Errors key for errors not tied to a single field.
const ErrorBase = "base"

// Error codes shown on the form.
const (
	ErrorCannotConnect = "cannot_connect"
	ErrorInvalidAuth   = "invalid_auth"
	ErrorUnknown       = "unknown"
	ErrorRequired      = "required"
)

// AbortAlreadyConfigured is the Result.Reason when the device already has an entry.
const AbortAlreadyConfigured = "already_configured"

var (
	// ErrCannotConnect means the device could not be reached.
	ErrCannotConnect = errors.New("cannot connect")
	// ErrInvalidAuth means the device rejected the password.
	ErrInvalidAuth = errors.New("invalid authentication")
)

// Field describes one input of the form.
type Field struct {
	Name     string
	Required bool
	// Secret fields should be masked when rendered.
	Secret bool
}

// Schema is the ordered list of form fields.
type Schema []Field

// UserSchema is the form shown by StepUser.
var UserSchema = Schema{
	{Name: FieldAddress, Required: true},
	{Name: FieldPassword, Required: true, Secret: true},
}

// Missing returns the required fields without a value in input.
func (s Schema) Missing(input map[string]string) []string {
	var missing []string
	for _, f := range s {
		if f.Required && input[f.Name] == "" {
			missing = append(missing, f.Name)
		}
	}

	return missing
}

// ResultType says what the caller should do with a Result.
type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
	ResultAbort       ResultType = "abort"
)

// Result is the outcome of a flow step.
type Result struct {
	Type ResultType

	// Form
	StepID string
	Schema Schema
	Errors map[string]string

	// CreateEntry
	Entry entry.Entry

	// Abort
	Reason string
}

// Info is what ValidateInput learns about the device.
type Info struct {
	Title string
	ID    string
}

// Connector builds a device client for an address and password.
type Connector func(address, password string) (airq.Device, error)

// DefaultConnector builds an airq.Client.
func DefaultConnector(address, password string) (airq.Device, error) {
	return airq.NewClient(address, password)
}

// Store is the part of entry.Store the flow needs.
type Store interface {
	ByUniqueID(uid string) (entry.Entry, error)
	Add(e entry.Entry) (entry.Entry, error)
}

// Flow runs the setup wizard against a Store.
type Flow struct {
	store   Store
	connect Connector

	uniqueID string

	log *slog.Logger
}

// NewFlow creates a Flow. A nil connect uses DefaultConnector.
func NewFlow(store Store, connect Connector) *Flow {
	if connect == nil {
		connect = DefaultConnector
	}

	return &Flow{
		store:   store,
		connect: connect,
		log:     log.ForComponent("setup"),
	}
}

// UniqueID returns the device id set by the last successful validation.
func (f *Flow) UniqueID() string {
	return f.uniqueID
}

// StepUser shows the form when input is nil. Otherwise it validates input and either re-shows the form with an error,
// aborts because the device is already configured, or creates and stores the entry.
func (f *Flow) StepUser(ctx context.Context, input map[string]string) (Result, error) {
	if input == nil {
		return form(nil), nil
	}

	if missing := UserSchema.Missing(input); len(missing) > 0 {
		errs := make(map[string]string, len(missing))
		for _, name := range missing {
			errs[name] = ErrorRequired
		}

		return form(errs), nil
	}

	info, err := ValidateInput(ctx, f.connect, input)
	switch {
	case errors.Is(err, ErrCannotConnect):
		return form(map[string]string{ErrorBase: ErrorCannotConnect}), nil
	case errors.Is(err, ErrInvalidAuth):
		return form(map[string]string{ErrorBase: ErrorInvalidAuth}), nil
	case err != nil:
		f.log.With(log.Error(err)).Error("Unexpected exception")
		return form(map[string]string{ErrorBase: ErrorUnknown}), nil
	}

	f.uniqueID = info.ID
	if _, err = f.store.ByUniqueID(info.ID); err == nil {
		return abort(AbortAlreadyConfigured), nil
	} else if !errors.Is(err, entry.ErrNotFound) {
		return Result{}, fmt.Errorf("setup: lookup %s: %w", info.ID, err)
	}

	created, err := f.store.Add(entry.Entry{
		Title:    info.Title,
		UniqueID: info.ID,
		Data:     maps.Clone(input),
	})
	if errors.Is(err, entry.ErrAlreadyConfigured) {
		return abort(AbortAlreadyConfigured), nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("setup: create entry: %w", err)
	}

	f.log.With(slog.Any("entry", created)).Info("Created entry")
	return Result{Type: ResultCreateEntry, Entry: created}, nil
}

// ValidateInput authenticates against the device and reads its config to derive the entry title and unique id.
func ValidateInput(ctx context.Context, connect Connector, input map[string]string) (Info, error) {
	device, err := connect(input[FieldAddress], input[FieldPassword])
	if err != nil {
		return Info{}, fmt.Errorf("connect: %w", err)
	}

	ok, err := device.TestAuthentication(ctx)
	if err != nil {
		return Info{}, classify("authenticate", err)
	}
	if !ok {
		return Info{}, ErrInvalidAuth
	}

	data, err := device.Get(ctx, "config")
	if err != nil {
		return Info{}, classify("get config", err)
	}

	cfg, err := data.Config()
	if err != nil {
		return Info{}, err
	}

	return Info{Title: "Air-Q " + cfg.Name, ID: cfg.ID}, nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, airq.ErrCannotConnect), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrCannotConnect, err)
	case errors.Is(err, airq.ErrInvalidAuth):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidAuth, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func form(errs map[string]string) Result {
	if errs == nil {
		errs = map[string]string{}
	}

	return Result{Type: ResultForm, StepID: StepUser, Schema: UserSchema, Errors: errs}
}

func abort(reason string) Result {
	return Result{Type: ResultAbort, Reason: reason}
}
