package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/internal/logger"
	"github.com/cognicore/tactica/pkg/tactica"
	"github.com/cognicore/tactica/pkg/tactica/config"
)

type commandContext struct {
	configFlag  *string
	logModeFlag *string

	app *config.App
	log *logger.Logger
}

func newCommandContext(configFlag, logModeFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, logModeFlag: logModeFlag}
}

func (c *commandContext) ensureConfig() (*config.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := config.Load(strings.TrimSpace(*c.configFlag))
	if err != nil {
		return nil, err
	}
	if mode := strings.TrimSpace(*c.logModeFlag); mode != "" {
		app.LogMode = mode
	}
	c.app = &app
	return c.app, nil
}

func (c *commandContext) logger() (*logger.Logger, error) {
	if c.log != nil {
		return c.log, nil
	}
	app, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(app.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	c.log = log
	return log, nil
}

// withEngine opens the configured engine for the duration of fn.
func (c *commandContext) withEngine(cmd *cobra.Command, fn func(*tactica.Tactica) error) (err error) {
	app, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log, err := c.logger()
	if err != nil {
		return err
	}
	engine, err := tactica.Open(cmd.Context(), *app, log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(engine)
}

func (c *commandContext) close() {
	if c.log != nil {
		c.log.Sync()
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
