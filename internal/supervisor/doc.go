// Package supervisor spawns the bundled Python server and relays its
// lifecycle to the launcher's own process.
//
// The supervisor is the last stage of a launch. It:
//   - locates the server sources relative to the launcher's installation
//     root and refuses to spawn when they are missing,
//   - builds the child environment (the launcher's own environment plus
//     PYTHONPATH pointing at the bundled sources),
//   - starts `<python> -m openspec_mcp.server` with the launcher's stdin,
//     stdout, and stderr handed over directly,
//   - forwards SIGINT and SIGTERM to the child instead of dying on them,
//   - maps the child's exit to the launcher's exit code.
//
// Once the child is running the launcher never touches the standard
// streams again; it only waits.
package supervisor
