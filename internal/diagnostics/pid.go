package diagnostics

import "os"

func currentPID() int {
	return os.Getpid()
}
