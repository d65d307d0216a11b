// Command smctl is the operator CLI: it reads and maintains the record store directly,
// acting as the administrator.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
