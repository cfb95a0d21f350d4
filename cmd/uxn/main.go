// Command uxn runs Uxn ROMs against the Varvara peripheral set.
package main

import "github.com/zotley/uxnvm/internal/cli"

func main() {
	cli.Execute()
}
