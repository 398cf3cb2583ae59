package util

func IsNumber(b byte) bool {
	return b >= '0' && b <= '9'
}

func IsUnderScore(b byte) bool {
	return b == '_'
}

func IsLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func IsLetterOrUnderscore(b byte) bool {
	return IsLetter(b) || IsUnderScore(b)
}

func IsLetterOrUnderscoreOrNumber(b byte) bool {
	return IsLetter(b) || IsUnderScore(b) || IsNumber(b)
}

// IsBlank reports the whitespace bytes skipped between tokens.
func IsBlank(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// IsSymbolStart reports whether b may begin an assembler label or variable name.
func IsSymbolStart(b byte) bool {
	return IsLetterOrUnderscore(b) || b == '.' || b == '$' || b == ':'
}

// IsSymbolPart reports whether b may continue an assembler label or variable name.
func IsSymbolPart(b byte) bool {
	return IsSymbolStart(b) || IsNumber(b)
}
