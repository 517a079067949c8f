// Command sift clusters AI test failures into patterns and consolidates
// per-pattern fixes into a ranked implementation plan.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
