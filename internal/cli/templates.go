package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/pkg/collage/templates"
)

// templatesCommand lists the template catalog.
func (c *CLI) templatesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "templates [name]",
		Short: "List collage templates with a preview",
		Long: `List the built-in templates. Each preview shows the grid with every unit
square labelled by the index of the cell covering it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := templates.List()
			if len(args) == 1 {
				t, err := templates.Lookup(args[0])
				if err != nil {
					return err
				}
				list = []templates.Template{t}
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			for i, t := range list {
				if i > 0 {
					printNewline()
				}
				fmt.Println(StyleTitle.Render(t.Name) + " " + StyleDim.Render(fmt.Sprintf("%dx%d · %d slots", t.Rows, t.Cols, t.Slots())))
				printDetail("%s", t.Description)
				printPreview(t.Layout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}
