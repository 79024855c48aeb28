// Command dailydigest triggers keyword crawls and turns the stored posts
// into an AI-written daily digest.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
