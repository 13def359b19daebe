package main

import "github.com/yeremiapane/fuji-pos/cmd"

func main() {
	cmd.Execute()
}
