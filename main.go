package main

import (
	"github.com/joho/godotenv"

	"github.com/gaurav-prasanna/diagrampipe/cmd"
)

func main() {
	// Load .env if present; DIAGRAMPIPE_* variables may come from it.
	_ = godotenv.Load()

	cmd.Execute()
}
