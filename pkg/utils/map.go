package utils

// CopyMap returns a new map with the same key-value pairs as the input map.
// key and value are not deep copied.
func CopyMap[K comparable, V any](m map[K]V) map[K]V {
	result := make(map[K]V, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
