package dispatch

// isPrintable reports whether every byte of s is printable ASCII: letters,
// digits, punctuation, space and the whitespace controls \t \n \r \v \f.
// Anything else, including every non-ASCII byte, fails.
func isPrintable(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 0x20 && c <= 0x7e:
		case c == '\t', c == '\n', c == '\r', c == '\v', c == '\f':
		default:
			return false
		}
	}
	return true
}
