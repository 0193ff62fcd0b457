package sstv

// morseTable maps characters to Morse patterns
var morseTable = map[rune]string{
	// Letters
	'A': ".-",
	'B': "-...",
	'C': "-.-.",
	'D': "-..",
	'E': ".",
	'F': "..-.",
	'G': "--.",
	'H': "....",
	'I': "..",
	'J': ".---",
	'K': "-.-",
	'L': ".-..",
	'M': "--",
	'N': "-.",
	'O': "---",
	'P': ".--.",
	'Q': "--.-",
	'R': ".-.",
	'S': "...",
	'T': "-",
	'U': "..-",
	'V': "...-",
	'W': ".--",
	'X': "-..-",
	'Y': "-.--",
	'Z': "--..",

	// Numbers
	'0': "-----",
	'1': ".----",
	'2': "..---",
	'3': "...--",
	'4': "....-",
	'5': ".....",
	'6': "-....",
	'7': "--...",
	'8': "---..",
	'9': "----.",

	// Punctuation
	'/': "-..-.",
	'.': ".-.-.-",
	',': "--..--",
	'?': "..--..",
	'=': "-...-",
	'-': "-....-",
}

// charToMorse returns the pattern for an uppercase character
func charToMorse(c rune) (string, bool) {
	p, ok := morseTable[c]
	return p, ok
}
