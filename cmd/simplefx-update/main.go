package main

import "github.com/simplefx/simplefx-update/internal/ui"

func main() {
	// Initialize terminal FIRST, before the updating indicator's
	// charmbracelet libraries can query it.
	ui.InitTerminal()

	Execute()
}
