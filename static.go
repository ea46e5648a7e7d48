package main

import "embed"

//go:embed static
var staticFiles embed.FS

//go:embed demos
var demoFiles embed.FS
