// Command ideagraph is the thin CLI surface spec.md §6 describes driving
// the core: polling external sources, syncing GitHub, and running the
// periodic maintenance jobs (tag/task cleanup, log analysis).
package main

func main() {
	Execute()
}
