package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"watchparty/internal/api"
	"watchparty/internal/mockdata"
)

// StatusCmd prints the resolved static configuration.
type StatusCmd struct{}

func (c *StatusCmd) Run(app *App) error {
	cfg := app.cfg
	mode := "live"
	if cfg.UseMockData {
		mode = "mock"
	}

	fmt.Fprintf(stdout, "%s %s\n", keyStyle.Render(cfg.AppName), cfg.AppVersion)
	fmt.Fprintf(stdout, "Mode:      %s\n", mode)
	fmt.Fprintf(stdout, "API:       %s%s\n", cfg.APIBaseURL, api.PathPrefix)
	fmt.Fprintf(stdout, "Realtime:  %s/ws\n", cfg.WSBaseURL)
	fmt.Fprintf(stdout, "Store:     %s\n", cfg.StoreURL)
	if cfg.RelayURL != "" {
		fmt.Fprintf(stdout, "Relay:     %s\n", cfg.RelayURL)
	}
	fmt.Fprintf(stdout, "Fixtures:  %d entries\n", app.table.Len())
	fmt.Fprintln(stdout, "Features:")
	for _, name := range slices.Sorted(maps.Keys(cfg.Features)) {
		state := errStyle.Render("off")
		if cfg.Features[name] {
			state = okStyle.Render("on")
		}
		fmt.Fprintf(stdout, "  %-16s %s\n", name, state)
	}
	return nil
}

type RequestFlags struct {
	Header []string `short:"H" help:"Extra request header (Name: value)"`
	Raw    bool     `short:"r" help:"Print the payload without formatting"`
}

// GetCmd sends a GET request.
type GetCmd struct {
	Path         string `arg:"" help:"Request path, e.g. /parties/"`
	RequestFlags `embed:""`
}

func (c *GetCmd) Run(app *App) error {
	opts, err := headerOptions(c.Header)
	if err != nil {
		return err
	}
	return printResponse(stdout, app.Client().Get(app.ctx, c.Path, opts...), c.Raw)
}

// DeleteCmd sends a DELETE request.
type DeleteCmd struct {
	Path         string `arg:"" help:"Request path"`
	RequestFlags `embed:""`
}

func (c *DeleteCmd) Run(app *App) error {
	opts, err := headerOptions(c.Header)
	if err != nil {
		return err
	}
	return printResponse(stdout, app.Client().Delete(app.ctx, c.Path, opts...), c.Raw)
}

type BodyArgs struct {
	Path string `arg:"" help:"Request path"`
	Body string `arg:"" optional:"" help:"JSON body (reads from stdin if - is given)"`
	File string `short:"f" help:"Read the JSON body from a file" type:"existingfile"`
}

func (b BodyArgs) body() (any, error) {
	var data []byte
	var err error

	switch {
	case b.File != "":
		data, err = os.ReadFile(b.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
	case b.Body == "-":
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	case b.Body != "":
		data = []byte(b.Body)
	default:
		return nil, nil
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("body is not valid JSON: %w", err)
	}
	return v, nil
}

// PostCmd sends a POST request.
type PostCmd struct {
	BodyArgs     `embed:""`
	RequestFlags `embed:""`
}

func (c *PostCmd) Run(app *App) error {
	body, err := c.body()
	if err != nil {
		return err
	}
	opts, err := headerOptions(c.Header)
	if err != nil {
		return err
	}
	return printResponse(stdout, app.Client().Post(app.ctx, c.Path, body, opts...), c.Raw)
}

// PatchCmd sends a PATCH request.
type PatchCmd struct {
	BodyArgs     `embed:""`
	RequestFlags `embed:""`
}

func (c *PatchCmd) Run(app *App) error {
	body, err := c.body()
	if err != nil {
		return err
	}
	opts, err := headerOptions(c.Header)
	if err != nil {
		return err
	}
	return printResponse(stdout, app.Client().Patch(app.ctx, c.Path, body, opts...), c.Raw)
}

// FixturesCmd lists the mock table or prints one entry.
type FixturesCmd struct {
	Key string `arg:"" optional:"" help:"Entry to print, e.g. \"GET /parties/\""`
}

func (c *FixturesCmd) Run(app *App) error {
	if c.Key != "" {
		key, err := mockdata.ParseKey(c.Key)
		if err != nil {
			return err
		}
		data, ok := app.table.Lookup(key)
		if !ok {
			return fmt.Errorf("no fixture for %s", key)
		}
		fmt.Fprintln(stdout, indentJSON(data))
		return nil
	}

	for _, key := range app.table.Keys() {
		fmt.Fprintf(stdout, "%s %s\n", methodStyle.Render(key.Method), key.Path)
	}
	return nil
}
