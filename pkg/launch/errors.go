// Package launch provides the kernel dispatch surface: in-order execution
// queues ("streams"), data-parallel fan-out, the positional buffer-binding
// calling convention, and the error taxonomy separating caller
// misconfiguration from execution faults.
package launch

import "fmt"

// ConfigError reports a malformed descriptor or a buffer count/size mismatch.
// Configuration errors are detected before any parallel work is dispatched.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Msg
}

// Configf builds a *ConfigError from a format string.
func Configf(format string, args ...interface{}) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ExecError reports an unrecoverable fault raised while a kernel was in
// flight. The whole call fails; there are no retries and no partial results.
type ExecError struct {
	Kernel string      // name of the originating kernel, if known
	Fault  interface{} // recovered fault value
}

func (e *ExecError) Error() string {
	if e.Kernel == "" {
		return fmt.Sprintf("execution fault: %v", e.Fault)
	}
	return fmt.Sprintf("kernel %s: execution fault: %v", e.Kernel, e.Fault)
}
