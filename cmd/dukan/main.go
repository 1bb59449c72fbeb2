// Command dukan is the terminal client for the Dukan identity API: login,
// session inspection, two-factor enrollment, email verification and password
// reset.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
