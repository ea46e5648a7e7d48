package main

import "demo-console/cmd"

func main() {
	cmd.Execute(cmd.Assets{Static: staticFiles, Demos: demoFiles})
}
