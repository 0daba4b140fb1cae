package inference

import (
	"os"
	"syscall"
)

// gracefulSignal is the termination signal used to stop a supervised child,
// giving it a chance to flush and exit before a forced kill.
func gracefulSignal() os.Signal { return syscall.SIGTERM }
