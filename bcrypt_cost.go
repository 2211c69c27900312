//go:build !race

package users

// The work factor is fixed so hashing latency stays bounded and is not
// tunable per request.
func passwordHashCost() int {
	return 10
}
