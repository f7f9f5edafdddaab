package utils

import (
	"fmt"

	"code.cloudfoundry.org/bytefmt"
)

// FormatWithCommas formats an integer with comma separators
func FormatWithCommas(n int) string {
	str := fmt.Sprintf("%d", n)
	if n < 1000 && n > -1000 {
		return str
	}
	sign := ""
	if str[0] == '-' {
		sign, str = "-", str[1:]
	}
	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return sign + result
}

// FormatBytes renders a byte count like "1.2K".
func FormatBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return bytefmt.ByteSize(uint64(n))
}
