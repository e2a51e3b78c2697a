package algorithms

import (
	"fmt"
	"unicode/utf8"
)

// BitRow is one bit of a character and the basis state a qubit would
// hold for it.
type BitRow struct {
	Index int
	Bit   byte
	Ket   string
}

type BitsTable struct {
	Word   string
	Chars  int
	Bits   int
	Qubits int
	First  rune
	Binary string
	Rows   []BitRow
}

// BitsVsQubits counts the classical bits of a word, 8 per byte, and
// lists the bits of its first byte. Each bit needs one qubit prepared in
// |0> or |1>.
func BitsVsQubits(word string) (*BitsTable, error) {
	if word == "" {
		return nil, ErrEmptyWord
	}
	first, _ := utf8.DecodeRuneInString(word)
	t := &BitsTable{
		Word:   word,
		Chars:  utf8.RuneCountInString(word),
		Bits:   8 * len(word),
		First:  first,
		Binary: fmt.Sprintf("%08b", word[0]),
	}
	t.Qubits = t.Bits
	for i := 0; i < 8; i++ {
		b := t.Binary[i]
		t.Rows = append(t.Rows, BitRow{Index: i, Bit: b, Ket: "|" + string(b) + ">"})
	}
	return t, nil
}

// Superposition is the amplitude pair of the bit-vs-qubit comparison: a
// classical bit has all weight on one value, a qubit splits it.
func Superposition(alpha, beta float64) (bit, qubit [2]float64) {
	return [2]float64{1, 0}, [2]float64{alpha, beta}
}
