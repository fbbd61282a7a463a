// Command fpcache queries a Floatplane account through the cached client.
//
// Every lookup goes through the same operations a player would use, so
// running it against a shared redis store shows cache behaviour across
// invocations:
//
//	fpcache --cookie "sails.sid=..." --store redis --redis-addr localhost:6379 video Fb3GgW9yUd
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
