package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gridcollage/pkg/collage/grid"
	"github.com/matzehuels/gridcollage/pkg/collage/images"
)

// editCommand creates the interactive layout editor command.
func (c *CLI) editCommand() *cobra.Command {
	var imageDir string

	cmd := &cobra.Command{
		Use:   "edit [layout.json]",
		Short: "Edit a layout file interactively",
		Long: `Open a layout file in an interactive editor.

Move between cells with the arrow keys, grow or shrink the selected cell,
cycle images through it, auto-fill empty cells, or switch templates. Edits
that would cut through another multi-cell block are refused with a message.
Press s to save back to the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(args[0], imageDir)
		},
	}

	cmd.Flags().StringVarP(&imageDir, "images", "i", "", "image directory (default: the one recorded in the layout)")
	return cmd
}

func (c *CLI) runEdit(path, imageDir string) error {
	f, err := readLayoutFile(path)
	if err != nil {
		return err
	}
	if imageDir == "" {
		imageDir = f.Images
	}

	var set images.Set
	if imageDir != "" {
		if set, _, err = images.LoadDir(imageDir); err != nil {
			return err
		}
		f.Images = imageDir
	}

	m := NewEditorModel(f.Layout, f.Template, set, nil)
	m.Save = func(l grid.Layout, template string) error {
		f.Layout, f.Template = l, template
		return writeLayoutFile(path, f)
	}

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run editor: %w", err)
	}

	result := final.(EditorModel)
	switch {
	case result.Saved && !result.Dirty:
		printSuccess("Saved %s", path)
	case result.Dirty:
		printWarning("Discarded unsaved changes")
	}
	printPreview(result.Layout)
	return nil
}
