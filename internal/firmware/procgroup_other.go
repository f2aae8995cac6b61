//go:build !unix

package firmware

import "os/exec"

// killProcessGroup leaves the default cancellation, which kills only the tool.
func killProcessGroup(cmd *exec.Cmd) {}
