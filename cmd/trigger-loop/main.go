// Command trigger-loop polls GPIO inputs, evaluates configured bindings once
// per cycle and runs the tasks they trigger, reporting task lifecycle over
// MQTT.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
