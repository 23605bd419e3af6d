// Command folioctl is the operator CLI for migrations, lockout administration and admin bootstrap.
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
