// Command xld links ELF64 x86-64 relocatable objects and archives into a
// static executable.
package main

import "github.com/halvardk/xld/internal/cli"

func main() {
	cli.Execute()
}
