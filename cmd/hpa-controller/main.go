package main

import (
	"minihpa/cmd/hpa-controller/app"
	"minihpa/pkg/klog"
)

func main() {
	cmd := app.NewHPAControllerCommand()
	if err := cmd.Execute(); err != nil {
		klog.Fatalf("hpa-controller exited: %v\n", err)
	}
}
