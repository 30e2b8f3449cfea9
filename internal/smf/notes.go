package smf

// PitchClass identifies one of the twelve notes of the chromatic scale.
type PitchClass int

const (
	C PitchClass = iota
	CSharp
	D
	EFlat
	E
	F
	FSharp
	G
	AFlat
	A
	BFlat
	B
)

var noteNames = [12]string{
	"C", "Db", "D", "Eb", "E", "F", "F#", "G", "Ab", "A", "Bb", "B",
}

func (pc PitchClass) String() string {
	return noteNames[int(pc)%12]
}

// PitchClassOf reduces a note number to its pitch class.
func PitchClassOf(note uint8) PitchClass {
	return PitchClass(note % 12)
}

// NoteName returns the pitch-class name of a note number, e.g. 60 -> "C".
func NoteName(note uint8) string {
	return noteNames[note%12]
}
