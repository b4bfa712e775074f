package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rm-hull/near-expiry-food/internal/brands"
)

// Sources lists the registered sources and whether each is enabled.
func Sources(configPath string, w io.Writer) error {
	a, err := bootstrap(configPath, Overrides{})
	if err != nil {
		return err
	}
	defer a.Close()

	return a.listSources(w)
}

func (a *app) listSources(w io.Writer) error {
	enabled := a.cfg.Enabled()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "BRAND", "PROGRAMME", "ENABLED")
	for _, src := range a.aggregator.Sources() {
		brand := brands.Lookup(src.ID())
		t.Row(string(src.ID()), src.Brand(), brand.Programme, strconv.FormatBool(enabled[src.ID()]))
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
