package utils

import "math/rand"

const alphanum = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandAlphanumeric generates a random cookie for advisory locks.
func RandAlphanumeric(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = alphanum[rand.Intn(len(alphanum))]
	}
	return string(buf)
}
