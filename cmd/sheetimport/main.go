// Command sheetimport runs region imports and schema migrations from the
// command line against the configured database.
package main

func main() {
	Execute()
}
