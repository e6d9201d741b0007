package back

import "strconv"

// cquote quotes s for the .string directive using C escapes only.
func cquote(s string) string {
	b := make([]byte, 0, len(s)+2)

	b = append(b, '"')

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch c {
		case '"', '\\':
			b = append(b, '\\', c)
		case '\n':
			b = append(b, `\n`...)
		case '\t':
			b = append(b, `\t`...)
		case '\r':
			b = append(b, `\r`...)
		default:
			if c >= 0x20 && c < 0x7f {
				b = append(b, c)
				continue
			}

			o := strconv.FormatUint(uint64(c), 8)

			b = append(b, '\\')
			b = append(b, "000"[len(o):]...)
			b = append(b, o...)
		}
	}

	b = append(b, '"')

	return string(b)
}
