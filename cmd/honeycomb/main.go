// Command honeycomb bootstraps the adapter runtime outside a storage
// engine host, for operators checking a deployment.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
