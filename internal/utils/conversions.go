package utils

// StringsFromClaim reads a JWT claim that may decode as a single string, a
// []string or a []any. Non-string elements are skipped.
func StringsFromClaim(claim any) []string {
	switch v := claim.(type) {
	case string:
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
