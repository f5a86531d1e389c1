package main

import "github.com/lockplane/migrator/cmd"

func main() {
	cmd.Execute()
}
