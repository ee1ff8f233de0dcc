package main

import "github.com/emrgen/servicecatalog/cmd"

func main() {
	cmd.Execute()
}
