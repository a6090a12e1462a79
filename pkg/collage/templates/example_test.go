package templates_test

import (
	"fmt"

	"github.com/matzehuels/gridcollage/pkg/collage/templates"
)

func ExampleNames() {
	for _, name := range templates.Names() {
		fmt.Println(name)
	}
	// Output:
	// grid-2x2
	// grid-3x3
	// grid-4x4
	// featured
	// featured-center
	// banner
	// column
	// filmstrip
}

func ExampleGet() {
	l, _ := templates.Get("featured")
	fmt.Print(l)
	// Output:
	// 0 0 1
	// 0 0 2
	// 3 4 5
}
