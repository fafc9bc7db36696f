package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"watchparty/internal/settings"
)

// ConfigCmd manages the runtime settings store.
type ConfigCmd struct {
	Get      ConfigGetCmd      `cmd:"" help:"Print one setting"`
	Set      ConfigSetCmd      `cmd:"" help:"Change one setting"`
	List     ConfigListCmd     `cmd:"" help:"List all settings"`
	Export   ConfigExportCmd   `cmd:"" help:"Print settings as JSON"`
	Import   ConfigImportCmd   `cmd:"" help:"Merge settings from JSON"`
	Reset    ConfigResetCmd    `cmd:"" help:"Remove all settings"`
	Validate ConfigValidateCmd `cmd:"" help:"Check settings against a YAML schema"`
}

type ConfigGetCmd struct {
	Key string `arg:""`
}

func (c *ConfigGetCmd) Run(app *App) error {
	s, err := app.Settings()
	if err != nil {
		return err
	}
	if !s.Has(c.Key) {
		return fmt.Errorf("%s is not set", c.Key)
	}
	fmt.Fprintln(stdout, formatValue(s.Get(c.Key, nil)))
	return nil
}

type ConfigSetCmd struct {
	Key   string `arg:""`
	Value string `arg:"" help:"JSON value; anything that does not parse is stored as a string"`
}

func (c *ConfigSetCmd) Run(app *App) error {
	s, err := app.Settings()
	if err != nil {
		return err
	}
	var old any
	unsubscribe := s.Subscribe(c.Key, func(_, previous any) { old = previous })
	defer unsubscribe()

	if err := s.Set(c.Key, parseValue(c.Value)); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s: %s -> %s\n", keyStyle.Render(c.Key), formatValue(old), formatValue(s.Get(c.Key, nil)))
	return nil
}

type ConfigListCmd struct{}

func (c *ConfigListCmd) Run(app *App) error {
	s, err := app.Settings()
	if err != nil {
		return err
	}
	all := s.All()
	if len(all) == 0 {
		fmt.Fprintln(stdout, "No settings")
		return nil
	}
	for _, key := range slices.Sorted(maps.Keys(all)) {
		fmt.Fprintf(stdout, "%s = %s\n", keyStyle.Render(key), formatValue(all[key]))
	}
	if at, ok := lastSaved(app.kv); ok {
		fmt.Fprintf(stdout, "%s\n", timeStyle.Render("Last saved "+at.Local().Format(time.RFC3339)))
	}
	return nil
}

// lastSaved reports when the settings snapshot was written, for backends
// that track it.
func lastSaved(kv any) (time.Time, bool) {
	tracker, ok := kv.(interface {
		UpdatedAt(key string) (time.Time, bool, error)
	})
	if !ok {
		return time.Time{}, false
	}
	at, found, err := tracker.UpdatedAt(settings.StorageKey)
	if err != nil || !found {
		return time.Time{}, false
	}
	return at, true
}

type ConfigExportCmd struct {
	Output string `short:"o" help:"Write to a file instead of stdout"`
}

func (c *ConfigExportCmd) Run(app *App) error {
	s, err := app.Settings()
	if err != nil {
		return err
	}
	text, err := s.Export()
	if err != nil {
		return err
	}
	if c.Output == "" {
		fmt.Fprintln(stdout, text)
		return nil
	}
	return os.WriteFile(c.Output, []byte(text+"\n"), 0o644)
}

type ConfigImportCmd struct {
	File string `arg:"" optional:"" help:"JSON file (reads from stdin if omitted)" type:"existingfile"`
}

func (c *ConfigImportCmd) Run(app *App) error {
	var data []byte
	var err error
	if c.File != "" {
		data, err = os.ReadFile(c.File)
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	s, err := app.Settings()
	if err != nil {
		return err
	}
	res := s.Import(string(data))
	if !res.Success {
		return fmt.Errorf("import failed: %s", res.Error)
	}
	fmt.Fprintln(stdout, okStyle.Render("Imported"))
	return nil
}

type ConfigResetCmd struct{}

func (c *ConfigResetCmd) Run(app *App) error {
	s, err := app.Settings()
	if err != nil {
		return err
	}
	if err := s.Reset(); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Settings cleared")
	return nil
}

type ConfigValidateCmd struct {
	Schema string `arg:"" help:"YAML schema file" type:"existingfile"`
}

func (c *ConfigValidateCmd) Run(app *App) error {
	schema, err := settings.LoadSchema(c.Schema)
	if err != nil {
		return err
	}
	s, err := app.Settings()
	if err != nil {
		return err
	}

	res := s.Validate(schema)
	if res.Valid {
		fmt.Fprintln(stdout, okStyle.Render("Settings are valid"))
		return nil
	}
	for _, msg := range res.Errors {
		fmt.Fprintf(stdout, "%s %s\n", errStyle.Render("✗"), msg)
	}
	return exitError{code: 1, msg: fmt.Sprintf("%d validation errors", len(res.Errors))}
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
