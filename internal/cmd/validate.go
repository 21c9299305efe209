package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jimezsa/jobscrape/internal/export"
)

type ValidateCmd struct {
	Files []string `arg:"" help:"Session JSON files to check."`
}

func (c *ValidateCmd) Run(ctx *Context) error {
	failed := 0
	for _, path := range c.Files {
		data, err := os.ReadFile(path)
		if err == nil {
			err = export.ValidateDocument(data)
		}
		if err == nil {
			ctx.UI.Successf("%s: ok", path)
			continue
		}

		failed++
		var verr *export.ValidationError
		if !errors.As(err, &verr) {
			ctx.UI.Errorf("%s: %v", path, err)
			continue
		}
		ctx.UI.Errorf("%s: %d problems", path, len(verr.Errors))
		for _, fe := range verr.Errors {
			ctx.UI.Warnf("  %s: %s", fe.Field, fe.Message)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed validation", failed, len(c.Files))
	}
	return nil
}
