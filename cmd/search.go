package cmd

import (
	"context"
	"io"
)

// Search runs a single search and prints the results to w.
func Search(ctx context.Context, configPath string, overrides Overrides, w io.Writer) error {
	a, err := bootstrap(configPath, overrides)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runOnce(ctx, a.aggregator, w)
}
