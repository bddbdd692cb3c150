package main

import (
	"github.com/wrenware/vigil/internal/cli"
	"github.com/wrenware/vigil/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
