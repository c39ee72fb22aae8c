// SPDX-License-Identifier: MPL-2.0

// Command modload resolves, loads and inspects modules.
package main

import "github.com/invowk/modload/cmd/modload"

func main() {
	cmd.Execute()
}
