package main

import "github.com/AdrianWest/Bakery/cmd/bakery/cmd"

func main() {
	cmd.Execute()
}
