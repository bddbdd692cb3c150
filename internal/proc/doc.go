// Package proc provides the process-lifecycle primitives shared by the vigil
// commands: a liveness oracle for arbitrary pids, signal dispatch with a
// self-safe group broadcast, and bounded waits for spawned children.
//
// Liveness is answered without wait-family calls, so the oracle works for
// processes the caller never spawned. A dead verdict is final: the operating
// system recycles pids, and a watcher that kept probing after observing death
// could end up vouching for an unrelated newcomer under the same number.
//
// Full signal semantics are only available on POSIX platforms. On Windows the
// dispatcher offers best-effort equivalents: signal 0 probes for existence,
// SIGKILL and SIGTERM terminate the top-level process, and group broadcast is
// unsupported. Callers that need an entire tree stopped on Windows must
// arrange job objects or other host-specific tooling themselves.
package proc
