package main

import "github.com/KaramelBytes/tabprep/cmd"

func main() {
	cmd.Execute()
}
